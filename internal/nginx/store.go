package nginx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/models"
)

var (
	ErrAlreadyHosted = errors.New("domain is already hosted")
	ErrInvalidDomain = errors.New("invalid domain")
	ErrInvalidConfig = errors.New("configuration rejected by nginx")
	ErrPersistFailed = errors.New("failed to persist configuration")
	ErrApplyFailed   = errors.New("failed to apply configuration")
)

// Store owns the live nginx configuration file. The file is the only record
// of what is hosted: every call re-reads it.
type Store struct {
	mu       sync.RWMutex
	path     string
	codec    *Codec
	writer   FileWriter
	process  ProcessController
	validate bool
	logger   *logging.Logger
}

type StoreConfig struct {
	Path     string
	Codec    *Codec
	Writer   FileWriter
	Process  ProcessController
	Validate bool // run nginx -t on the candidate before persisting
}

func NewStore(cfg StoreConfig) *Store {
	codec := cfg.Codec
	if codec == nil {
		codec = NewCodec("")
	}
	writer := cfg.Writer
	if writer == nil {
		writer = AtomicWriter{}
	}
	return &Store{
		path:     cfg.Path,
		codec:    codec,
		writer:   writer,
		process:  cfg.Process,
		validate: cfg.Validate,
		logger:   logging.GetGlobalLogger(),
	}
}

func (s *Store) Codec() *Codec {
	return s.codec
}

// Load returns the current text. A missing file is replaced by the default
// skeleton, which is persisted but not applied.
func (s *Store) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	s.logger.Warn("Configuration %s not found, writing default", s.path)
	if err := s.writer.WriteFile(ctx, s.path, []byte(DefaultConfig)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return DefaultConfig, nil
}

// read is Load for callers that only look.
func (s *Store) read(ctx context.Context) (string, error) {
	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()
	if err == nil {
		return string(data), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return s.Load(ctx)
	}
	return "", fmt.Errorf("failed to read %s: %w", s.path, err)
}

// Text returns the raw configuration.
func (s *Store) Text(ctx context.Context) (string, error) {
	return s.read(ctx)
}

// List returns every hosted domain in file order.
func (s *Store) List(ctx context.Context) ([]models.Domain, error) {
	text, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return s.codec.Parse(text), nil
}

// Lookup returns the hosted domain called name.
func (s *Store) Lookup(ctx context.Context, name string) (models.Domain, bool, error) {
	domains, err := s.List(ctx)
	if err != nil {
		return models.Domain{}, false, err
	}
	for _, d := range domains {
		if d.Name == name {
			return d, true, nil
		}
	}
	return models.Domain{}, false, nil
}

func (s *Store) Summary(ctx context.Context) (models.DomainSummary, error) {
	domains, err := s.List(ctx)
	if err != nil {
		return models.DomainSummary{}, err
	}
	summary := models.DomainSummary{
		TotalDomains: len(domains),
		Domains:      make(map[string]models.Domain, len(domains)),
	}
	for _, d := range domains {
		summary.Domains[d.Name] = d
	}
	return summary, nil
}

// Add renders d at the insertion marker, persists and applies.
func (s *Store) Add(ctx context.Context, d models.Domain) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDomain, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, existing := range s.codec.Parse(text) {
		if existing.Name == d.Name {
			return fmt.Errorf("%w: %s", ErrAlreadyHosted, d.Name)
		}
	}

	updated, err := s.codec.Insert(text, d)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, updated); err != nil {
		return err
	}
	s.logger.Info("Added %s to %s", d.Name, s.path)
	return nil
}

// Remove deletes the block for name. It reports false, and touches nothing,
// when name is not hosted.
func (s *Store) Remove(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	updated, found := s.codec.RemoveBlock(text, name)
	if !found || updated == text {
		s.logger.Debug("%s is not in %s, nothing to remove", name, s.path)
		return false, nil
	}
	if err := s.commit(ctx, updated); err != nil {
		return false, err
	}
	s.logger.Info("Removed %s from %s", name, s.path)
	return true, nil
}

// commit validates, persists and applies text. Must hold s.mu.
func (s *Store) commit(ctx context.Context, text string) error {
	if s.validate && s.process != nil {
		if err := s.test(ctx, text); err != nil {
			return err
		}
	}
	if err := s.writer.WriteFile(ctx, s.path, []byte(text)); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return s.apply(ctx)
}

func (s *Store) test(ctx context.Context, text string) error {
	tmp, err := os.CreateTemp("", "nginx-candidate-*.conf")
	if err != nil {
		return fmt.Errorf("failed to stage candidate: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to stage candidate: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to stage candidate: %w", err)
	}
	if err := s.process.Test(ctx, tmp.Name()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Apply reloads nginx, falling back to a restart.
func (s *Store) Apply(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(ctx)
}

func (s *Store) apply(ctx context.Context) error {
	if s.process == nil {
		return nil
	}
	reloadErr := s.process.Reload(ctx)
	if reloadErr == nil {
		return nil
	}
	s.logger.Warn("Reload failed, restarting nginx: %v", reloadErr)
	if err := s.process.Restart(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrApplyFailed, errors.Join(reloadErr, err))
	}
	return nil
}
