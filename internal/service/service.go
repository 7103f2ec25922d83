// Package service implements the conversation orchestrator.
package service

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waegarcia/conversational-assistant/internal/adapter/weather"
	"github.com/waegarcia/conversational-assistant/internal/config"
	"github.com/waegarcia/conversational-assistant/internal/intent"
	"github.com/waegarcia/conversational-assistant/internal/metrics"
	"github.com/waegarcia/conversational-assistant/internal/policy"
	"github.com/waegarcia/conversational-assistant/internal/reply"
	"github.com/waegarcia/conversational-assistant/internal/repository"
)

type Service struct {
	store        repository.Store
	classifier   *intent.Classifier
	generator    *reply.Generator
	metrics      metrics.Sink
	policyEngine *policy.Engine
	config       *config.Config
	logger       *zap.Logger
	locks        *keyedMutex

	newID func() string
	now   func() time.Time
}

func New(store repository.Store, gateway weather.Gateway, sink metrics.Sink, policyEngine *policy.Engine, cfg *config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		classifier:   intent.NewClassifier(),
		generator:    reply.NewGenerator(gateway, sink, cfg.Weather.DefaultCity, logger),
		metrics:      sink,
		policyEngine: policyEngine,
		config:       cfg,
		logger:       logger,
		locks:        newKeyedMutex(),
		newID:        uuid.NewString,
		now:          func() time.Time { return time.Now().UTC() },
	}
}
