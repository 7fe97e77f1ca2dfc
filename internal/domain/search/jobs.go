package search

import (
	"context"
	"strings"

	apperrors "github.com/yanqian/eventradar/pkg/errors"
)

// StartJob validates req, records a pending job and runs the search detached
// from ctx. The returned job carries the id to poll.
func (s *service) StartJob(ctx context.Context, req Request) (Job, error) {
	if _, err := s.validate(req); err != nil {
		return Job{}, err
	}
	if s.jobs == nil {
		return Job{}, apperrors.Wrap(apperrors.CodeSearchFailed, "job tracking is not configured", nil)
	}

	now := s.now.Now()
	job := Job{
		ID:        s.newID(),
		Status:    JobPending,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.jobs.Save(ctx, job, s.cfg.JobTTL); err != nil {
		return Job{}, apperrors.Wrap(apperrors.CodeSearchFailed, "failed to record job", err)
	}
	s.logger.Info("search job started", "jobId", job.ID, "city", req.City, "date", req.Date)

	go s.runJob(context.WithoutCancel(ctx), job)
	return job, nil
}

func (s *service) runJob(ctx context.Context, job Job) {
	resp, err := s.Search(ctx, job.Request)
	job.UpdatedAt = s.now.Now()
	if err != nil {
		code := apperrors.CodeOf(err)
		if code == "" {
			code = apperrors.CodeSearchFailed
		}
		job.Status = JobFailed
		job.Error = &JobError{Code: code, Message: err.Error()}
	} else {
		job.Status = JobDone
		job.Result = &resp
	}

	wctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.jobs.Save(wctx, job, s.cfg.JobTTL); err != nil {
		s.logger.Warn("search job result not stored", "jobId", job.ID, "error", err)
		return
	}
	s.logger.Info("search job finished", "jobId", job.ID, "status", job.Status)
}

// GetJob returns the current state of a job.
func (s *service) GetJob(ctx context.Context, id string) (Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Job{}, apperrors.Wrap(apperrors.CodeInvalidInput, "job id is required", nil)
	}
	if s.jobs == nil {
		return Job{}, apperrors.Wrap(apperrors.CodeNotFound, "job not found", nil)
	}
	job, ok, err := s.jobs.Get(ctx, id)
	if err != nil {
		return Job{}, apperrors.Wrap(apperrors.CodeSearchFailed, "failed to read job", err)
	}
	if !ok {
		return Job{}, apperrors.Wrap(apperrors.CodeNotFound, "job not found", nil)
	}
	return job, nil
}
