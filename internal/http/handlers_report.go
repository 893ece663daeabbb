package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/report"
)

type reportResponse struct {
	From     core.Date       `json:"from"`
	To       core.Date       `json:"to"`
	Snapshot report.Snapshot `json:"snapshot"`
}

// handleReport always recomputes; the result is kept for export only when no
// newer computation for the same range has started meanwhile.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	owner, from, to, err := s.reportParams(r)
	if err != nil {
		s.writeError(w, r, applog.OpAggregate, err)
		return
	}
	snap, err := s.buildReport(r, owner, from, to)
	if err != nil {
		s.writeError(w, r, applog.OpAggregate, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{From: from, To: to, Snapshot: snap})
}

// handleReportExport serves the last published snapshot for the range as a
// workbook, computing one if none is held.
func (s *Server) handleReportExport(w http.ResponseWriter, r *http.Request) {
	owner, from, to, err := s.reportParams(r)
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}

	snap, ok := s.reports.Latest(reportKey(owner, from, to))
	if !ok {
		if snap, err = s.buildReport(r, owner, from, to); err != nil {
			s.writeError(w, r, applog.OpExport, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, snap); err != nil {
		s.writeError(w, r, applog.OpExport, fmt.Errorf("render workbook: %w", err))
		return
	}
	w.Header().Set("Content-Type", report.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportFilename(from, to)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) reportParams(r *http.Request) (string, core.Date, core.Date, error) {
	owner, err := userID(r)
	if err != nil {
		return "", core.Date{}, core.Date{}, err
	}
	from, to, err := parseRange(r, s.opts.Now(), s.opts.Location)
	if err != nil {
		return "", core.Date{}, core.Date{}, err
	}
	return owner, from, to, nil
}

func (s *Server) buildReport(r *http.Request, owner string, from, to core.Date) (report.Snapshot, error) {
	key := reportKey(owner, from, to)
	seq := s.reports.Begin(key)
	snap, err := s.deps.Reports.Build(r.Context(), owner, from, to)
	if err != nil {
		s.reports.Abandon(key, seq)
		return report.Snapshot{}, err
	}
	if !s.reports.Publish(key, seq, snap) {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Report superseded by a newer request", "owner_id", owner)
	}
	return snap, nil
}

// invalidateReports drops every held snapshot of owner after a write.
func (s *Server) invalidateReports(owner string) {
	s.reports.ForgetOwner(owner)
}

func exportFilename(from, to core.Date) string {
	name := "fintrack-report"
	if from.IsKnown() {
		name += "-" + from.String()
	}
	if to.IsKnown() {
		name += "-" + to.String()
	}
	return name + ".xlsx"
}
