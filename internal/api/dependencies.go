package api

import (
	"infinite-experiment/dispatchboard/internal/services"
)

type Services struct {
	Dispatch *services.DispatchService
	Analysis *services.AnalysisService
}

type Dependencies struct {
	Services *Services
}

func NewDependencies(dispatch *services.DispatchService, analysis *services.AnalysisService) *Dependencies {
	return &Dependencies{
		Services: &Services{
			Dispatch: dispatch,
			Analysis: analysis,
		},
	}
}
