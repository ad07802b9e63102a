package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/milad/octosync/internal/api/readingsv1"
)

type readingJSON struct {
	EnergyType    string  `json:"energyType"`
	IntervalStart string  `json:"intervalStart"`
	IntervalEnd   string  `json:"intervalEnd"`
	Consumption   float64 `json:"consumption"`
}

type listReadingsResponseJSON struct {
	Readings      []readingJSON `json:"readings"`
	NextPageToken string        `json:"nextPageToken,omitempty"`
}

type apiErrorJSON struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// toReadingJSON returns false when the upstream reading is unusable.
func toReadingJSON(r *readingsv1.Reading) (readingJSON, bool) {
	start, end := r.GetIntervalStart(), r.GetIntervalEnd()
	if start == nil || end == nil || start.CheckValid() != nil || end.CheckValid() != nil {
		return readingJSON{}, false
	}
	return readingJSON{
		EnergyType:    r.GetEnergyType(),
		IntervalStart: formatTime(start.AsTime()),
		IntervalEnd:   formatTime(end.AsTime()),
		Consumption:   r.GetConsumption(),
	}, true
}
