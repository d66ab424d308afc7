package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"infinite-experiment/dispatchboard/internal/scheduling"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Flight is one row of the flights table. Only Gate and CheckinData are
// written after import.
type Flight struct {
	ID          string      `gorm:"column:id;primaryKey;size:36"`
	FlightNo    string      `gorm:"column:flight_no;index"`
	Gate        string      `gorm:"column:gate;default:UNASSIGNED"`
	TargetTime  time.Time   `gorm:"column:target_time;index"`
	IsETD       bool        `gorm:"column:is_etd"`
	ACType      string      `gorm:"column:ac_type"`
	ACCode      string      `gorm:"column:ac_code"`
	CheckinData CheckinData `gorm:"column:checkin_data"`
	CreatedAt   time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Flight) TableName() string {
	return "flights"
}

// CheckinEntry is the stored shape of one check-in window.
type CheckinEntry struct {
	Ctr   string    `json:"ctr"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CheckinData is the checkin_data column: a JSON array of windows.
type CheckinData []CheckinEntry

// Scan implements the sql.Scanner interface
func (c *CheckinData) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("CheckinData: cannot scan type %T", src)
	}
	if len(raw) == 0 {
		*c = nil
		return nil
	}
	return json.Unmarshal(raw, c)
}

// Value implements the driver.Valuer interface
func (c CheckinData) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// GormDBDataType picks JSONB on Postgres and TEXT elsewhere.
func (CheckinData) GormDBDataType(db *gormlib.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "JSONB"
	}
	return "TEXT"
}

// ToOperation converts the row into the scheduling domain type.
func (f *Flight) ToOperation() scheduling.FlightOperation {
	gate := f.Gate
	if gate == "" {
		gate = scheduling.Unassigned
	}

	op := scheduling.FlightOperation{
		RecordID:         f.ID,
		ID:               f.FlightNo,
		OperativeTime:    f.TargetTime.UTC(),
		IsEstimated:      f.IsETD,
		AircraftType:     f.ACType,
		AircraftCategory: f.ACCode,
		Gate:             gate,
	}
	if op.AircraftCategory == "" {
		op.AircraftCategory = scheduling.AircraftCategory(f.ACType)
	}
	if len(f.CheckinData) > 0 {
		op.Checkins = make([]scheduling.CheckinWindow, 0, len(f.CheckinData))
		for _, c := range f.CheckinData {
			op.Checkins = append(op.Checkins, scheduling.CheckinWindow{
				CounterID: c.Ctr,
				Start:     c.Start.UTC(),
				End:       c.End.UTC(),
			})
		}
	}
	return op
}

// FlightFromOperation builds a row for insert. RecordID must already be set.
func FlightFromOperation(op scheduling.FlightOperation) *Flight {
	gate := op.Gate
	if gate == "" {
		gate = scheduling.Unassigned
	}
	return &Flight{
		ID:          op.RecordID,
		FlightNo:    op.ID,
		Gate:        gate,
		TargetTime:  op.OperativeTime.UTC(),
		IsETD:       op.IsEstimated,
		ACType:      op.AircraftType,
		ACCode:      op.AircraftCategory,
		CheckinData: CheckinDataFromWindows(op.Checkins),
	}
}

// CheckinDataFromWindows converts domain windows to the stored form.
func CheckinDataFromWindows(windows []scheduling.CheckinWindow) CheckinData {
	data := make(CheckinData, 0, len(windows))
	for _, w := range windows {
		data = append(data, CheckinEntry{Ctr: w.CounterID, Start: w.Start.UTC(), End: w.End.UTC()})
	}
	return data
}
