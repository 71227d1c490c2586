package web

import (
	"bytes"
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/emiliopalmerini/trialscope/internal/chart"
	"github.com/emiliopalmerini/trialscope/internal/view"
)

// handleChartExport serves /charts/{name}.{png,svg} as a static image.
func (s *Server) handleChartExport(w http.ResponseWriter, r *http.Request) {
	file := r.PathValue("file")
	ext := path.Ext(file)
	name, err := view.ParseChartName(strings.TrimSuffix(file, ext))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	format, err := chart.ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		return
	}

	var opts view.Options
	if name == view.ChartAccuracy {
		id, err := strconv.ParseInt(r.URL.Query().Get("experiment"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_parameter", "experiment query parameter is required")
			return
		}
		if _, err := s.explorer.ExperimentDetail(r.Context(), id); err != nil {
			writeAPIError(w, err)
			return
		}
		opts.ExperimentID = id
	}

	d := view.New(s.api, &routeNavigator{}, s.dashboardOptions(opts))
	defer d.Unmount()
	if err := d.Mount(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", view.LoadFailedMessage)
		return
	}
	d.Settle()

	var buf bytes.Buffer
	switch name {
	case view.ChartCost:
		err = d.Cost().Export(&buf, format)
	case view.ChartDaily:
		err = d.Daily().Export(&buf, format)
	case view.ChartAccuracy:
		err = d.Accuracy().Export(&buf, format)
	}
	if errors.Is(err, chart.ErrNoData) {
		writeError(w, http.StatusNotFound, "no_data", err.Error())
		return
	}
	if err != nil {
		writeAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}
