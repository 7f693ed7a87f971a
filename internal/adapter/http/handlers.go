package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/couchcryptid/airquality-dashboard/internal/adapter/xlsx"
	"github.com/couchcryptid/airquality-dashboard/internal/domain"
	"github.com/couchcryptid/airquality-dashboard/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

type constantsResponse struct {
	domain.Constants
	Pollutants         []domain.Pollutant         `json:"pollutants"`
	WeatherFactors     []domain.WeatherFactor     `json:"weather_factors"`
	SeverityThresholds []domain.SeverityThreshold `json:"severity_thresholds"`
}

func (s *Server) handleConstants(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, constantsResponse{
		Constants:          s.dashboard.Constants(),
		Pollutants:         domain.Pollutants,
		WeatherFactors:     domain.WeatherFactors,
		SeverityThresholds: domain.SeverityThresholds,
	})
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	stations, err := s.dashboard.Stations(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string][]string{"stations": stations})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selectionFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.dashboard.Render(r.Context(), sel)
	if err != nil {
		s.writeError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sel, err := s.selectionFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out, err := s.dashboard.Render(r.Context(), sel)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := xlsx.Write(&buf, pipeline.Tables(out.View), pipeline.TableOrder...); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="airquality-%s.xlsx"`, out.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// selectionFromRequest starts from the default selection and applies the
// query parameters (GET) or the JSON body (POST) on top of it.
func (s *Server) selectionFromRequest(r *http.Request) (domain.Selection, error) {
	sel, err := s.dashboard.DefaultSelection(r.Context())
	if err != nil {
		return domain.Selection{}, err
	}
	if r.Method == http.MethodPost {
		return decodeSelection(r.Body, sel)
	}
	return applyQuery(r.URL.Query(), sel)
}

func decodeSelection(body io.Reader, sel domain.Selection) (domain.Selection, error) {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sel); err != nil {
		return domain.Selection{}, fmt.Errorf("%w: decode selection: %v", domain.ErrInvalidSelection, err)
	}
	return sel, nil
}

// applyQuery reads pollutant, from, to, station (repeated or comma-separated),
// and weather. A present but empty station parameter selects no stations.
func applyQuery(q url.Values, sel domain.Selection) (domain.Selection, error) {
	if v := q.Get("pollutant"); v != "" {
		sel.Pollutant = domain.Pollutant(v)
	}
	if v := q.Get("weather"); v != "" {
		sel.WeatherFactor = domain.WeatherFactor(v)
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"from", &sel.YearLow}, {"to", &sel.YearHigh}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return domain.Selection{}, fmt.Errorf("%w: %s must be a year, got %q", domain.ErrInvalidSelection, p.key, v)
		}
		*p.dst = n
	}
	if values, ok := q["station"]; ok {
		stations := []string{}
		for _, v := range values {
			for _, name := range strings.Split(v, ",") {
				if name = strings.TrimSpace(name); name != "" {
					stations = append(stations, name)
				}
			}
		}
		sel.Stations = stations
	}
	return sel, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrInvalidSelection) {
		status = http.StatusBadRequest
	} else {
		s.logger.Error("request failed", "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
