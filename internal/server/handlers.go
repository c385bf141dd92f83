package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/gyeh/lossreport/internal/ingest"
	"github.com/gyeh/lossreport/internal/model"
	"github.com/gyeh/lossreport/internal/normalize"
	"github.com/gyeh/lossreport/internal/report"
	"github.com/gyeh/lossreport/internal/store"
	"github.com/gyeh/lossreport/internal/tablesource"
)

type uploadResponse struct {
	Status  string            `json:"status"`
	Feed    model.FeedKind    `json:"feed"`
	Rows    int64             `json:"rows"`
	Dropped int64             `json:"dropped"`
	BatchID string            `json:"batchId"`
	Sheet   string            `json:"sheet,omitempty"`
	Headers map[string]string `json:"headers"`
}

// upload handles POST /upload/{feed} with a multipart "file" field.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseFeedKind(chi.URLParam(r, "feed"))
	if err != nil {
		s.fail(w, r, problem(http.StatusNotFound, err.Error()))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, fh, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, problem(http.StatusBadRequest, fmt.Sprintf("file field required: %v", err)))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, problem(http.StatusBadRequest, fmt.Sprintf("read upload: %v", err)))
		return
	}
	table, err := tablesource.ReadBytes(fh.Filename, data, s.eng.TableOptions(kind))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, tablesource.ErrUnsupportedFormat) {
			status = http.StatusUnsupportedMediaType
		}
		s.fail(w, r, problem(status, err.Error()))
		return
	}

	sum, err := s.eng.IngestSource(r.Context(), kind, ingest.Source{
		Name:   fh.Filename,
		SHA256: normalize.BytesHash(data),
		Table:  table,
	})
	s.metrics.RecordIngest(kind, sum, err)
	if err != nil {
		var ve *ingest.ValidationError
		if errors.As(err, &ve) {
			p := problem(http.StatusBadRequest, ve.Error())
			p.Missing = ve.MissingNames()
			s.fail(w, r, p)
			return
		}
		s.log.Error().Err(err).Str("feed", string(kind)).Msg("upload ingest failed")
		s.fail(w, r, problem(http.StatusInternalServerError, err.Error()))
		return
	}

	render.JSON(w, r, uploadResponse{
		Status:  "ok",
		Feed:    kind,
		Rows:    sum.RowsAccepted,
		Dropped: sum.RowsDropped,
		BatchID: sum.BatchID,
		Sheet:   sum.Sheet,
		Headers: sum.Headers,
	})
}

// filters handles GET /filters.
func (s *Server) filters(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.eng.Filters())
}

// reportQuery is the query string shared by both report routes.
type reportQuery struct {
	Client    string `validate:"required"`
	Coverages string
	Periods   string
}

func (s *Server) parseReportQuery(r *http.Request) (string, report.Selection, error) {
	q := r.URL.Query()
	rq := reportQuery{Client: q.Get("client"), Coverages: q.Get("coverages"), Periods: q.Get("periods")}
	if err := s.validate.Struct(rq); err != nil {
		return "", report.Selection{}, report.ErrClientRequired
	}
	return rq.Client, report.ParseSelection(rq.Coverages, rq.Periods), nil
}

// trend handles GET /report/primas.
func (s *Server) trend(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	client, sel, err := s.parseReportQuery(r)
	var series []report.TrendSeries
	if err == nil {
		series, err = s.eng.Trend(client, sel)
	}
	s.metrics.observeReport("trend", start, err)
	if err != nil {
		s.reportError(w, r, err)
		return
	}
	render.JSON(w, r, series)
}

// distribution handles GET /report/gastos.
func (s *Server) distribution(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	client, sel, err := s.parseReportQuery(r)
	var d *report.Distribution
	if err == nil {
		d, err = s.eng.Distribution(client, sel)
	}
	s.metrics.observeReport("distribution", start, err)
	if err != nil {
		s.reportError(w, r, err)
		return
	}
	render.JSON(w, r, d)
}

func (s *Server) reportError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, report.ErrClientRequired) {
		s.fail(w, r, problem(http.StatusBadRequest, err.Error()))
		return
	}
	s.log.Error().Err(err).Msg("report failed")
	s.fail(w, r, problem(http.StatusInternalServerError, err.Error()))
}

type snapshotInfo struct {
	BatchID  string    `json:"batchId"`
	LoadedAt time.Time `json:"loadedAt"`
	Source   string    `json:"source,omitempty"`
	Rows     int       `json:"rows"`
}

func describe[T any](snap *store.Snapshot[T]) *snapshotInfo {
	if snap == nil {
		return nil
	}
	return &snapshotInfo{BatchID: snap.BatchID.String(), LoadedAt: snap.LoadedAt, Source: snap.Source, Rows: snap.Len()}
}

// health handles GET /healthz.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	v := s.eng.Store().View()
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"premiums": describe(v.Premiums),
		"claims":   describe(v.Claims),
	})
}
