package grpcserver

import (
	"context"
	"errors"
	"log"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/octacordshop/PrimeStream/internal/catalogsync"
	"github.com/octacordshop/PrimeStream/internal/importer"
	"github.com/octacordshop/PrimeStream/internal/tmdb"
	"github.com/octacordshop/PrimeStream/pkg/grpc/syncpb"
	"github.com/octacordshop/PrimeStream/pkg/models"
)

// Syncer is the part of the sync engine exposed over gRPC.
type Syncer interface {
	SyncPopular(ctx context.Context, kind models.Kind, page int) (catalogsync.Result, error)
	SyncByYear(ctx context.Context, kind models.Kind, year, page int) (catalogsync.Result, error)
	Refresh(ctx context.Context, pages int) (catalogsync.RefreshResult, error)
}

type Server struct {
	syncpb.UnimplementedSyncServiceServer
	Engine   Syncer
	Importer *importer.Orchestrator
	// Observer, when set, also receives every import snapshot (hub, tracker).
	Observer importer.Observer
	Logger   *log.Logger
	Now      func() time.Time
}

func NewServer(engine Syncer, imp *importer.Orchestrator) *Server {
	return &Server{Engine: engine, Importer: imp, Logger: log.Default()}
}

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Server) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

func (s *Server) SyncPopular(ctx context.Context, req *syncpb.SyncPopularRequest) (*syncpb.SyncResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	kind, err := models.ParseKind(req.GetKind())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	page := int(req.GetPage())
	if page == 0 {
		page = 1
	}

	res, err := s.Engine.SyncPopular(ctx, kind, page)
	if err != nil {
		s.logf("[grpc] sync popular %s page %d: %v", kind, page, err)
		return nil, toStatus(err)
	}
	return &syncpb.SyncResponse{Result: resultToProto(res)}, nil
}

func (s *Server) SyncByYear(ctx context.Context, req *syncpb.SyncByYearRequest) (*syncpb.SyncResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	kind, err := models.ParseKind(req.GetKind())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if year := int(req.GetYear()); year < importer.MinYear || year > s.now().Year() {
		return nil, status.Error(codes.InvalidArgument, "invalid year")
	}
	page := int(req.GetPage())
	if page == 0 {
		page = 1
	}

	res, err := s.Engine.SyncByYear(ctx, kind, int(req.GetYear()), page)
	if err != nil {
		s.logf("[grpc] sync year %s %d page %d: %v", kind, req.GetYear(), page, err)
		return nil, toStatus(err)
	}
	return &syncpb.SyncResponse{Result: resultToProto(res)}, nil
}

// Refresh always answers with whatever counts were gathered; a failed kind
// is reported in the response's Error field.
func (s *Server) Refresh(ctx context.Context, req *syncpb.RefreshRequest) (*syncpb.RefreshResponse, error) {
	pages := int(req.GetPages())
	if pages < 1 {
		return nil, status.Error(codes.InvalidArgument, "pages must be >= 1")
	}

	res, err := s.Engine.Refresh(ctx, pages)
	if errors.Is(err, catalogsync.ErrInvalidPage) {
		return nil, toStatus(err)
	}
	resp := &syncpb.RefreshResponse{
		Pages:   int32(res.Pages),
		Movies:  resultToProto(res.Movies),
		TvShows: resultToProto(res.TVShows),
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, toStatus(ctx.Err())
		}
		s.logf("[grpc] refresh: %v", err)
		resp.Error = err.Error()
	}
	return resp, nil
}

// BulkImport runs the import inside the call and streams every snapshot.
// Cancelling the call stops the run after the current year.
func (s *Server) BulkImport(req *syncpb.BulkImportRequest, stream syncpb.SyncService_BulkImportServer) error {
	if s.Importer == nil {
		return status.Error(codes.Unimplemented, "bulk import not configured")
	}
	kind, err := models.ParseKind(req.GetKind())
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	ir := importer.Request{
		Kind:      kind,
		StartYear: int(req.StartYear),
		EndYear:   int(req.EndYear),
		Confirmed: req.Confirm,
	}
	ctx := stream.Context()
	var sendErr error
	_, err = s.Importer.BulkImport(ctx, ir, func(p importer.Progress) {
		if s.Observer != nil {
			s.Observer(p)
		}
		if sendErr != nil {
			return
		}
		sendErr = stream.Send(progressToProto(p))
	})
	if err != nil {
		return toStatus(err)
	}
	if sendErr != nil {
		return status.Error(codes.Unavailable, "stream closed")
	}
	return nil
}

func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrInvalidKind),
		errors.Is(err, catalogsync.ErrInvalidPage),
		errors.Is(err, importer.ErrInvalidRange):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, importer.ErrConfirmationRequired):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, tmdb.ErrUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	default:
		return status.Error(codes.Internal, "sync failed")
	}
}

func resultToProto(r catalogsync.Result) *syncpb.SyncResult {
	out := &syncpb.SyncResult{
		Kind:         string(r.Kind),
		Page:         int32(r.Page),
		Year:         int32(r.Year),
		Added:        int32(r.Added),
		Updated:      int32(r.Updated),
		Unavailable:  int32(r.Unavailable),
		NoExternalId: int32(r.NoExternalID),
		Errors:       int32(r.Errors),
		Total:        int32(r.Total),
		FromCache:    r.FromCache,
	}
	if r.Episodes != (catalogsync.EpisodeCounts{}) {
		out.Episodes = &syncpb.EpisodeCounts{
			Added:       int32(r.Episodes.Added),
			Updated:     int32(r.Episodes.Updated),
			Unavailable: int32(r.Episodes.Unavailable),
			Errors:      int32(r.Episodes.Errors),
		}
	}
	return out
}

func progressToProto(p importer.Progress) *syncpb.ImportProgress {
	out := &syncpb.ImportProgress{
		RunId:            p.RunID,
		Kind:             string(p.Kind),
		StartYear:        int32(p.StartYear),
		EndYear:          int32(p.EndYear),
		CurrentYear:      int32(p.CurrentYear),
		TotalYears:       int32(p.TotalYears),
		YearsDone:        int32(p.YearsDone),
		ProcessedCount:   int32(p.ProcessedCount),
		UpdatedCount:     int32(p.UpdatedCount),
		UnavailableCount: int32(p.UnavailableCount),
		ErrorCount:       int32(p.ErrorCount),
		ItemErrorCount:   int32(p.ItemErrorCount),
		IsRunning:        p.IsRunning,
		LastError:        p.LastError,
		StartedAtUnix:    p.StartedAt.Unix(),
	}
	if p.FinishedAt != nil {
		out.FinishedAtUnix = p.FinishedAt.Unix()
	}
	return out
}
