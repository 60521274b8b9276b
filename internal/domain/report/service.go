package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaxreport/vaxreport/internal/domain/vaccination"
	"github.com/vaxreport/vaxreport/internal/platform/auth"
)

var (
	ErrNoData      = errors.New("no records for the selected age groups and statuses")
	ErrPDFDisabled = errors.New("pdf conversion is not configured")
)

// Upstream is the subset of the babies API a report needs.
type Upstream interface {
	GetBaby(ctx context.Context, babyID string) (*vaccination.Baby, error)
	GetVaccinations(ctx context.Context, babyID string) (*vaccination.Schedule, error)
	StatusFetcher
}

// Report is a built report before rendering.
type Report struct {
	BabyID      string              `json:"baby_id"`
	Baby        *vaccination.Baby   `json:"baby"`
	Region      string              `json:"region"`
	Age         string              `json:"age"`
	GeneratedOn string              `json:"generated_on"`
	Selection   Selection           `json:"selection"`
	Buckets     Buckets             `json:"buckets"`
	Notice      *vaccination.Notice `json:"notice,omitempty"`
}

type Options struct {
	Upstream  Upstream
	Renderer  *Renderer
	Converter Converter
	Files     FileStore
	Archive   ArchiveRepository

	Brand       string
	Website     string
	DownloadDir string
	// EnrichStatus refetches each selected entry's current status detail
	// before partitioning.
	EnrichStatus bool

	Logger zerolog.Logger
}

// Service builds reports and hands them to the converter and file store.
type Service struct {
	upstream  Upstream
	renderer  *Renderer
	converter Converter
	files     FileStore
	archive   ArchiveRepository

	brand        string
	website      string
	downloadDir  string
	enrichStatus bool

	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a report service. Files defaults to OSFileStore.
func NewService(opts Options) *Service {
	files := opts.Files
	if files == nil {
		files = OSFileStore{}
	}
	return &Service{
		upstream:     opts.Upstream,
		renderer:     opts.Renderer,
		converter:    opts.Converter,
		files:        files,
		archive:      opts.Archive,
		brand:        opts.Brand,
		website:      opts.Website,
		downloadDir:  opts.DownloadDir,
		enrichStatus: opts.EnrichStatus,
		logger:       opts.Logger.With().Str("component", "report").Logger(),
		now:          time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Build fetches the baby and schedule and produces the bucketed report.
// An empty selection fails with ErrNothingSelected before any upstream call.
func (s *Service) Build(ctx context.Context, babyID string, sel Selection) (*Report, error) {
	if sel.Empty() {
		return nil, ErrNothingSelected
	}
	baby, err := s.upstream.GetBaby(ctx, babyID)
	if err != nil {
		return nil, fmt.Errorf("get baby: %w", err)
	}
	sched, err := s.upstream.GetVaccinations(ctx, babyID)
	if err != nil {
		return nil, fmt.Errorf("get vaccinations: %w", err)
	}

	region := baby.NormalizedRegion()
	now := s.now()
	rep := &Report{
		BabyID:      babyID,
		Baby:        baby,
		Region:      region,
		GeneratedOn: vaccination.FormatGeneratedDate(now),
		Buckets:     EmptyBuckets(),
	}
	if dob, ok := baby.BirthDate(); ok {
		rep.Age = vaccination.CalculateAge(dob, now)
	}

	// A payload without categories is a data-shape problem, not an empty
	// selection: "All" would expand to nothing, so stop before selecting.
	if !sched.HasCategories() || len(sched.Categories) == 0 {
		s.logger.Warn().Str("baby_id", babyID).Err(ErrMissingCategories).Msg("vaccinations payload has no categories")
		rep.Selection = sel.Expand(nil)
		n := NoticeNoData
		rep.Notice = &n
		return rep, nil
	}
	rep.Selection = sel.Expand(categoryNames(sched.Categories))

	lines, err := SelectLines(sched, region, rep.Selection)
	if err != nil {
		return nil, err
	}

	if s.enrichStatus && len(lines) > 0 {
		lines, err = Enrich(ctx, s.upstream, babyID, lines)
		if err != nil {
			return nil, err
		}
	}
	rep.Buckets = Partition(WithDueDates(lines, baby.DOB))

	if rep.Buckets.Empty() {
		n := NoticeNoData
		rep.Notice = &n
	}
	return rep, nil
}

// Generate builds the report and archives the request.
func (s *Service) Generate(ctx context.Context, babyID string, sel Selection) (*Report, error) {
	rep, err := s.Build(ctx, babyID, sel)
	if err != nil {
		return nil, err
	}
	s.record(ctx, rep, KindGenerate, "")
	return rep, nil
}

// Preview returns the report markup.
func (s *Service) Preview(ctx context.Context, babyID string, sel Selection) (string, *Report, error) {
	rep, markup, err := s.render(ctx, babyID, sel)
	if err != nil {
		return "", nil, err
	}
	s.record(ctx, rep, KindPreview, "")
	return markup, rep, nil
}

// Share converts the report to a PDF in the temp dir. The caller streams the
// file and then calls cleanup to remove it.
func (s *Service) Share(ctx context.Context, babyID string, sel Selection) (string, func(), error) {
	if s.converter == nil {
		return "", nil, ErrPDFDisabled
	}
	rep, markup, err := s.render(ctx, babyID, sel)
	if err != nil {
		return "", nil, err
	}
	path, err := s.converter.Convert(ctx, markup)
	if err != nil {
		return "", nil, fmt.Errorf("convert report: %w", err)
	}
	s.record(ctx, rep, KindShare, filepath.Base(path))

	cleanup := func() {
		if err := s.files.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("failed to remove shared report")
		}
	}
	return path, cleanup, nil
}

// DownloadFileName is the name a report is saved under in the downloads
// directory.
func DownloadFileName(t time.Time) string {
	return fmt.Sprintf("Vaccination_Report_%d.pdf", t.UnixMilli())
}

// Download saves the report PDF into the downloads directory. An existing
// file with the same name is left alone and reported as such.
func (s *Service) Download(ctx context.Context, babyID string, sel Selection) (*Outcome, error) {
	if s.converter == nil {
		return nil, ErrPDFDisabled
	}
	rep, markup, err := s.render(ctx, babyID, sel)
	if err != nil {
		return nil, err
	}

	target := filepath.Join(s.downloadDir, DownloadFileName(s.now()))
	exists, err := s.files.Exists(target)
	if err != nil {
		return nil, fmt.Errorf("check download target: %w", err)
	}
	if exists {
		out := OutcomeAlreadyExists
		out.Path = target
		return &out, nil
	}

	tmp, err := s.converter.Convert(ctx, markup)
	if err != nil {
		return nil, fmt.Errorf("convert report: %w", err)
	}
	if err := s.files.Move(tmp, target); err != nil {
		if rmErr := s.files.Remove(tmp); rmErr != nil {
			s.logger.Warn().Err(rmErr).Str("path", tmp).Msg("failed to remove temp report")
		}
		return nil, fmt.Errorf("move report: %w", err)
	}
	s.record(ctx, rep, KindDownload, filepath.Base(target))

	s.logger.Info().Str("baby_id", babyID).Str("path", target).Msg("report downloaded")
	out := OutcomeDownloaded
	out.Path = target
	return &out, nil
}

// ListArchive returns the archived report requests of one baby, newest
// first. The archive is local, so access is confirmed by fetching the baby
// upstream with the caller's token before anything is listed.
func (s *Service) ListArchive(ctx context.Context, babyID string, limit, offset int) ([]*Record, int, error) {
	if babyID == "" {
		return nil, 0, &vaccination.ValidationError{Fields: map[string]string{"baby_id": "baby_id is required"}}
	}
	if _, err := s.upstream.GetBaby(ctx, babyID); err != nil {
		return nil, 0, fmt.Errorf("get baby: %w", err)
	}
	if s.archive == nil {
		return []*Record{}, 0, nil
	}
	return s.archive.ListByBaby(ctx, babyID, limit, offset)
}

func (s *Service) render(ctx context.Context, babyID string, sel Selection) (*Report, string, error) {
	rep, err := s.Build(ctx, babyID, sel)
	if err != nil {
		return nil, "", err
	}
	if rep.Buckets.Empty() {
		return nil, "", ErrNoData
	}
	markup, err := s.renderer.Render(NewDocument(rep, s.brand, s.website))
	if err != nil {
		return nil, "", err
	}
	return rep, markup, nil
}

// record archives a report request. Failures are logged and never fail the
// request.
func (s *Service) record(ctx context.Context, rep *Report, kind Kind, fileName string) {
	if s.archive == nil {
		return
	}
	rec := &Record{
		BabyID:        rep.BabyID,
		Kind:          kind,
		AgeGroups:     rep.Selection.AgeGroups,
		Vaccinated:    len(rep.Buckets.Vaccinated),
		NotVaccinated: len(rep.Buckets.NotVaccinated),
		Skipped:       len(rep.Buckets.Skipped),
	}
	for _, st := range rep.Selection.Statuses {
		rec.Statuses = append(rec.Statuses, string(st))
	}
	if fileName != "" {
		rec.FileName = &fileName
	}
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		rec.RequestedBy = &uid
	}
	if err := s.archive.Create(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Str("baby_id", rep.BabyID).Str("kind", string(kind)).Msg("failed to archive report")
	}
}
