package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/models/entities"
	"infinite-experiment/dispatchboard/internal/services"
)

// HealthCheckHandler handles GET /healthCheck. rdb may be nil when no
// component uses Redis.
func HealthCheckHandler(db *sqlx.DB, rdb *redis.Client, dispatch *services.DispatchService, upSince time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		statuses := make(map[string]entities.ServiceStatus)

		dbStatus := "ok"
		dbDetails := db.DriverName() + " connected"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "down"
			dbDetails = err.Error()
		}
		statuses["database"] = entities.ServiceStatus{
			Status:  dbStatus,
			Details: dbDetails,
		}

		if rdb != nil {
			redisStatus := "ok"
			redisDetails := "Redis connected"
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "down"
				redisDetails = err.Error()
			}
			statuses["redis"] = entities.ServiceStatus{
				Status:  redisStatus,
				Details: redisDetails,
			}
		}

		snapDetails := "no view window loaded"
		if dispatch.Loaded() {
			snap := dispatch.Snapshot()
			snapDetails = snap.Window.Start.Format(time.RFC3339) + " - " + snap.Window.End.Format(time.RFC3339)
		}
		statuses["snapshot"] = entities.ServiceStatus{
			Status:  "ok",
			Details: snapDetails,
		}

		overallStatus := "ok"
		for _, svc := range statuses {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		resp := entities.HealthCheckResponse{
			Services: statuses,
			Status:   overallStatus,
			UpSince:  upSince,
			Uptime:   time.Since(upSince).Round(time.Second).String(),
		}
		if overallStatus != "ok" {
			common.RespondErrorWithData(w, initTime, nil, "Service degraded", resp, http.StatusServiceUnavailable)
			return
		}
		common.RespondSuccess(w, initTime, "Service healthy", resp)
	}
}
