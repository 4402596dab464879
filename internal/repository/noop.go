package repository

import (
	"context"

	"github.com/lotoos0/memex-sim/internal/domain/models"
	"github.com/lotoos0/memex-sim/internal/domain/repository"
)

// Nop implementations back the pipeline when an egress is disabled in config,
// so the usecase never branches on nil dependencies.

type NopArchive struct{}

func NewNopArchive() repository.TickArchive { return NopArchive{} }

func (NopArchive) Append(context.Context, string, models.Tick) error { return nil }
func (NopArchive) Flush(context.Context) error { return nil }
func (NopArchive) Close() error { return nil }

type NopPublisher struct{}

func NewNopPublisher() repository.Publisher { return NopPublisher{} }

func (NopPublisher) Publish(context.Context, *models.TickEnvelope) error { return nil }
func (NopPublisher) Close() error { return nil }
