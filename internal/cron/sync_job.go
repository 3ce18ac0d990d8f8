package cron

import (
	"context"
	"fmt"
)

type accessSyncer interface {
	Run(ctx context.Context) error
}

// AccessSyncJob runs the daily course-access sync sweep.
type AccessSyncJob struct {
	syncer accessSyncer
}

// NewAccessSyncJob wraps the session syncer as a scheduled job.
func NewAccessSyncJob(syncer accessSyncer) (*AccessSyncJob, error) {
	if syncer == nil {
		return nil, fmt.Errorf("syncer required")
	}
	return &AccessSyncJob{syncer: syncer}, nil
}

// Name identifies the job in logs and metrics.
func (j *AccessSyncJob) Name() string { return "access_sync" }

// Run executes one sweep.
func (j *AccessSyncJob) Run(ctx context.Context) error {
	return j.syncer.Run(ctx)
}
