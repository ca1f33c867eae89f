package ui

import (
	stderrors "errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"trolleymatch/adapters/excel"
	"trolleymatch/app"
	"trolleymatch/domain/core"
	"trolleymatch/domain/match"
	"trolleymatch/domain/run"
	"trolleymatch/domain/sheet"
	"trolleymatch/internal/errors"
	"trolleymatch/internal/metrics"
	"trolleymatch/ui/templates/fragments"

	"github.com/gin-gonic/gin"
)

const (
	msgNoFilePart     = "No file part in request."
	msgNoFileSelected = "No file selected."
	msgUploadNotFound = "Upload not found. Please upload the file again."
	msgFileNotFound   = "File not found."
	previewSamples    = 3
)

// page carries what the shared layout needs
type page struct {
	Title string
	Step  int
	Flash string
}

type indexPage struct {
	page
	Help        template.HTML
	MaxUploadMB int64
}

type limitOption struct {
	Value    string
	Label    string
	Selected bool
}

type selectColumnPage struct {
	page
	JobID     string
	Filename  string
	Samples   []sheet.ColumnPreview
	TotalRows int
	RowCap    int
	Modes     []limitOption
}

type resultsPage struct {
	page
	Report *run.Report
	Header []string
	Rows   [][]string
}

// processForm is posted by the configure step and by the JSON API
type processForm struct {
	JobID       string `form:"job_id" binding:"required"`
	Column      string `form:"column" binding:"required"`
	LimitMode   string `form:"limit_mode"`
	CustomLimit string `form:"custom_limit"`
}

func (s *Server) handleIndex(c *gin.Context) {
	s.renderPage(c, fragments.Index, indexPage{
		page:        page{Title: "Upload", Step: 1, Flash: popFlash(c)},
		Help:        s.help,
		MaxUploadMB: s.config.Server.MaxUploadMB,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.metrics.Upload(metrics.OutcomeRejected)
		s.redirectWithFlash(c, s.uploadFormError(c, err))
		return
	}
	if strings.TrimSpace(fileHeader.Filename) == "" {
		s.metrics.Upload(metrics.OutcomeRejected)
		s.redirectWithFlash(c, msgNoFileSelected)
		return
	}
	if !excel.AllowedExtension(fileHeader.Filename) {
		s.logger.Warn("Rejected upload %q: unsupported file type", fileHeader.Filename)
		s.metrics.Upload(metrics.OutcomeRejected)
		s.redirectWithFlash(c, errors.InvalidFileType(fileHeader.Filename).Message)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.metrics.Upload(metrics.OutcomeFailed)
		s.redirectWithFlash(c, errors.UserMessage(errors.Wrap(err, "Failed to read upload")))
		return
	}
	defer file.Close()

	jobID := core.NewJobID()
	path, filename, err := s.uploads.Save(c.Request.Context(), jobID, fileHeader.Filename, file)
	if err != nil {
		s.logger.Error("Failed to save upload: %v", err)
		s.metrics.Upload(metrics.OutcomeFailed)
		s.redirectWithFlash(c, errors.UserMessage(err))
		return
	}

	parsed, err := s.reader.Read(c.Request.Context(), path)
	if err != nil {
		s.logger.Warn("Failed to read %s: %v", path, err)
		s.metrics.Upload(metrics.OutcomeRejected)
		if errors.GetCode(err) == errors.CodeInvalidFileType {
			err = errors.InvalidFileType(fileHeader.Filename)
		}
		s.redirectWithFlash(c, readFailureMessage(err))
		return
	}

	s.metrics.Upload(metrics.OutcomeOK)
	s.logger.Info("Upload %s: %s with %d rows and %d columns", jobID, fileHeader.Filename, parsed.TotalRows(), len(parsed.Headers))

	s.renderPage(c, fragments.SelectColumn, selectColumnPage{
		page:      page{Title: "Configure", Step: 2},
		JobID:     jobID.String(),
		Filename:  filename,
		Samples:   parsed.Previews(previewSamples),
		TotalRows: parsed.TotalRows(),
		RowCap:    s.config.Run.RowCap,
		Modes:     limitOptions(),
	})
}

func (s *Server) handleProcess(c *gin.Context) {
	req, err := s.prepareRun(c)
	if err != nil {
		s.redirectWithFlash(c, errors.UserMessage(err))
		return
	}

	report, err := s.service.Run(c.Request.Context(), req)
	if err != nil {
		s.logger.Error("Run failed for %s: %v", req.Filename, err)
		s.redirectWithFlash(c, errors.UserMessage(err))
		return
	}

	rows := make([][]string, len(report.Results))
	for i, r := range report.Results {
		rows[i] = r.Record()
	}
	s.renderPage(c, fragments.Results, resultsPage{
		page:   page{Title: "Results", Step: 3},
		Report: report,
		Header: match.Header,
		Rows:   rows,
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("name")
	path, err := s.results.Path(name)
	if err != nil {
		s.redirectWithFlash(c, msgFileNotFound)
		return
	}

	c.Header("Content-Type", s.service.ContentType())
	c.FileAttachment(path, name)
}

// handleAPIProcess runs the same flow as /process but streams the file back
// instead of storing it.
func (s *Server) handleAPIProcess(c *gin.Context) {
	req, err := s.prepareRun(c)
	if err != nil {
		s.jsonError(c, err)
		return
	}

	report, err := s.service.Match(c.Request.Context(), req)
	if err != nil {
		s.jsonError(c, err)
		return
	}

	filename := fmt.Sprintf("trolley_results_%s%s", jobTimestamp(), s.service.Extension())
	c.Header("Content-Type", s.service.ContentType())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Rows-Processed", strconv.Itoa(report.Processed()))
	c.Status(http.StatusOK)
	if err := s.service.Export(c.Writer, report.Results); err != nil {
		s.logger.Error("Failed to stream results: %v", err)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// prepareRun validates the configure form and loads the uploaded sheet
func (s *Server) prepareRun(c *gin.Context) (app.RunRequest, error) {
	var form processForm
	if err := c.ShouldBind(&form); err != nil {
		if strings.TrimSpace(form.JobID) == "" {
			return app.RunRequest{}, errors.New(errors.CodeNotFound, msgUploadNotFound)
		}
		return app.RunRequest{}, errors.InvalidColumn(strings.TrimSpace(form.Column))
	}

	jobID, err := core.ParseJobID(form.JobID)
	if err != nil {
		return app.RunRequest{}, errors.New(errors.CodeNotFound, msgUploadNotFound)
	}
	path, filename, err := s.uploads.Find(jobID)
	if err != nil {
		return app.RunRequest{}, errors.Wrap(err, msgUploadNotFound)
	}

	parsed, err := s.reader.Read(c.Request.Context(), path)
	if err != nil {
		return app.RunRequest{}, errors.Wrap(err, readFailureMessage(err))
	}

	column := strings.TrimSpace(form.Column)
	if !parsed.HasColumn(column) {
		return app.RunRequest{}, errors.InvalidColumn(column)
	}

	mode := form.LimitMode
	if strings.TrimSpace(mode) == "" {
		mode = run.DefaultMode
	}
	limit, err := run.ParseLimit(mode, form.CustomLimit, parsed.TotalRows(), s.config.Run.RowCap)
	if err != nil {
		return app.RunRequest{}, err
	}
	if limit.Capped {
		s.logger.Debug("Row limit %q for %s lowered to %d", mode, filename, limit.Rows)
	}

	return app.RunRequest{
		Sheet:    parsed,
		Column:   column,
		Limit:    limit,
		Filename: filename,
	}, nil
}

func (s *Server) uploadFormError(c *gin.Context, err error) string {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return fmt.Sprintf("File is too large. The limit is %d MB.", s.config.Server.MaxUploadMB)
	}
	// Go's multipart reader files a part without a file name as a plain value
	if c.Request.MultipartForm != nil {
		if _, ok := c.Request.MultipartForm.Value["file"]; ok {
			return msgNoFileSelected
		}
	}
	return msgNoFilePart
}

func readFailureMessage(err error) string {
	if errors.GetCode(err) == errors.CodeSpreadsheetUnreadable {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) && appErr.Cause != nil {
			return fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
		}
	}
	return errors.UserMessage(err)
}

func (s *Server) redirectWithFlash(c *gin.Context, message string) {
	setFlash(c, message)
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) jsonError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("API request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": errors.UserMessage(err), "code": errors.GetCode(err)})
}

func (s *Server) renderPage(c *gin.Context, name string, data interface{}) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := s.render.Render(c.Writer, name, data); err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

func jobTimestamp() string {
	return time.Now().Format("20060102_150405")
}

func limitOptions() []limitOption {
	return []limitOption{
		{Value: "5", Label: "First 5", Selected: run.DefaultMode == "5"},
		{Value: "10", Label: "First 10"},
		{Value: "50", Label: "First 50"},
		{Value: "all", Label: "All"},
	}
}
