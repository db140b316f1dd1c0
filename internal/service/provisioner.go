package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/models"
	"github.com/gondar-software/domain-manager/internal/telemetry"
	"github.com/gondar-software/domain-manager/internal/utils"
)

// DNSManager points names at this host.
type DNSManager interface {
	AddRecords(ctx context.Context, fqdn string) error
	RemoveRecords(ctx context.Context, fqdn string) error
}

// CertificateIssuer obtains and deletes TLS certificates.
type CertificateIssuer interface {
	Issue(ctx context.Context, name string) error
	Revoke(ctx context.Context, name string) error
}

// ConfigStore is the proxy configuration and the record of what is hosted.
type ConfigStore interface {
	Add(ctx context.Context, d models.Domain) error
	Remove(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]models.Domain, error)
	Lookup(ctx context.Context, name string) (models.Domain, bool, error)
	Summary(ctx context.Context) (models.DomainSummary, error)
}

type ProvisionerConfig struct {
	// RootDomain qualifies bare subdomain names, e.g. "blog" under "example.com".
	RootDomain       string
	OperationTimeout time.Duration
	QueueSize        int
}

// Provisioner runs Add, Remove and Update one at a time on a single worker
// goroutine, which owns the certificate challenge port and the configuration
// file's read-modify-write cycle. Reads bypass the worker.
type Provisioner struct {
	cfg      ProvisionerConfig
	dns      DNSManager
	certs    CertificateIssuer
	store    ConfigStore
	notifier Notifier
	audit    *AuditService
	tracer   trace.Tracer
	logger   *logging.Logger

	jobs    chan *job
	stopped chan struct{}
}

type job struct {
	ctx   context.Context
	op    *Operation
	reply chan *Operation
}

func NewProvisioner(cfg ProvisionerConfig, dns DNSManager, certs CertificateIssuer, store ConfigStore, notifier Notifier) *Provisioner {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 10 * time.Minute
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Provisioner{
		cfg:      cfg,
		dns:      dns,
		certs:    certs,
		store:    store,
		notifier: notifier,
		audit:    NewAuditService(),
		tracer:   telemetry.Tracer(),
		logger:   logging.GetGlobalLogger(),
		jobs:     make(chan *job, cfg.QueueSize),
		stopped:  make(chan struct{}),
	}
}

// Run processes submitted operations until ctx is done. An operation that has
// started always runs to completion first.
func (p *Provisioner) Run(ctx context.Context) error {
	defer close(p.stopped)
	p.logger.Info("Provisioner started")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Provisioner stopped")
			return nil
		case j := <-p.jobs:
			p.execute(j)
		}
	}
}

// Qualify normalizes name and places it under the root domain.
func (p *Provisioner) Qualify(name string) (string, error) {
	fqdn, err := utils.QualifyDomain(name, p.cfg.RootDomain)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return fqdn, nil
}

// Add provisions DNS, a certificate and the proxy block for name. A name that
// is already hosted is torn down first.
func (p *Provisioner) Add(ctx context.Context, name string, hosts []models.Host) (*Operation, error) {
	return p.submitWithHosts(ctx, OperationAdd, name, hosts)
}

// Update replaces the routes of name.
func (p *Provisioner) Update(ctx context.Context, name string, hosts []models.Host) (*Operation, error) {
	return p.submitWithHosts(ctx, OperationUpdate, name, hosts)
}

// Remove tears down everything provisioned for name.
func (p *Provisioner) Remove(ctx context.Context, name string) (*Operation, error) {
	fqdn, err := p.Qualify(name)
	if err != nil {
		return nil, err
	}
	return p.submit(ctx, newOperation(OperationRemove, fqdn, nil))
}

func (p *Provisioner) submitWithHosts(ctx context.Context, kind OperationKind, name string, hosts []models.Host) (*Operation, error) {
	fqdn, err := p.Qualify(name)
	if err != nil {
		return nil, err
	}
	if utils.IsReservedAlias(fqdn, p.cfg.RootDomain) {
		return nil, fmt.Errorf("%w: %s collides with the www alias of another name", ErrValidation, fqdn)
	}
	if err := models.ValidateHosts(hosts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return p.submit(ctx, newOperation(kind, fqdn, hosts))
}

func (p *Provisioner) submit(ctx context.Context, op *Operation) (*Operation, error) {
	j := &job{ctx: ctx, op: op, reply: make(chan *Operation, 1)}

	select {
	case p.jobs <- j:
	case <-p.stopped:
		return nil, ErrShuttingDown
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case done := <-j.reply:
		return done, done.Err
	case <-p.stopped:
		select {
		case done := <-j.reply:
			return done, done.Err
		default:
			return nil, ErrShuttingDown
		}
	case <-ctx.Done():
		// the worker finishes the operation regardless
		return nil, ctx.Err()
	}
}

// List returns every hosted domain.
func (p *Provisioner) List(ctx context.Context) ([]models.Domain, error) {
	return p.store.List(ctx)
}

// Get returns the hosted domain for name.
func (p *Provisioner) Get(ctx context.Context, name string) (models.Domain, error) {
	fqdn, err := p.Qualify(name)
	if err != nil {
		return models.Domain{}, err
	}
	d, ok, err := p.store.Lookup(ctx, fqdn)
	if err != nil {
		return models.Domain{}, err
	}
	if !ok {
		return models.Domain{}, fmt.Errorf("%w: %s", ErrNotFound, fqdn)
	}
	return d, nil
}

func (p *Provisioner) Summary(ctx context.Context) (models.DomainSummary, error) {
	return p.store.Summary(ctx)
}

func (p *Provisioner) execute(j *job) {
	op := j.op
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), p.cfg.OperationTimeout)
	defer cancel()

	ctx, span := p.tracer.Start(ctx, "provision."+string(op.Kind), trace.WithAttributes(
		attribute.String("domain", op.Domain),
		attribute.String("operation.id", op.ID),
	))
	defer span.End()

	p.logger.Info("Operation %s: %s %s", op.ID, op.Kind, op.Domain)

	switch op.Kind {
	case OperationAdd:
		p.runAdd(ctx, op)
	case OperationUpdate:
		p.runUpdate(ctx, op)
	case OperationRemove:
		p.runRemove(ctx, op)
	}

	span.SetAttributes(attribute.String("state", string(op.State)))
	if op.Err != nil {
		span.RecordError(op.Err)
		span.SetStatus(codes.Error, op.Err.Error())
	}

	if op.State == StateFailed && op.Kind != OperationRemove {
		p.escalate(ctx, op)
	}
	p.audit.LogOperation(ctx, op)
	j.reply <- op
}

type step struct {
	name string
	to   State
	run  func(ctx context.Context) error
}

func (p *Provisioner) addSteps(op *Operation) []step {
	domain := models.Domain{Name: op.Domain, Hosts: op.Hosts}
	return []step{
		{name: "dns", to: StateDNSDone, run: func(ctx context.Context) error {
			return p.dns.AddRecords(ctx, op.Domain)
		}},
		{name: "certificate", to: StateCertDone, run: func(ctx context.Context) error {
			return p.certs.Issue(ctx, op.Domain)
		}},
		{name: "config", to: StateConfigDone, run: func(ctx context.Context) error {
			return p.store.Add(ctx, domain)
		}},
	}
}

func (p *Provisioner) runAdd(ctx context.Context, op *Operation) {
	if _, hosted, err := p.store.Lookup(ctx, op.Domain); err == nil && hosted {
		p.logger.Info("Operation %s: %s is already hosted, replacing it", op.ID, op.Domain)
		if err := p.teardown(ctx, op); err != nil {
			p.logger.Warn("Operation %s: teardown before re-add failed: %v", op.ID, err)
		}
	}
	p.runPipeline(ctx, op)
}

func (p *Provisioner) runUpdate(ctx context.Context, op *Operation) {
	if err := p.teardown(ctx, op); err != nil {
		p.compensate(ctx, op, fmt.Errorf("%w: remove: %w", ErrProvisionFailed, err))
		return
	}
	p.runPipeline(ctx, op)
}

func (p *Provisioner) runPipeline(ctx context.Context, op *Operation) {
	for _, s := range p.addSteps(op) {
		if err := p.runStep(ctx, op, s.name, s.run); err != nil {
			p.compensate(ctx, op, fmt.Errorf("%w: %s: %w", ErrProvisionFailed, s.name, err))
			return
		}
		op.transition(s.to, s.name)
	}
	op.transition(StateCommitted, "")
	op.finish(nil)
}

func (p *Provisioner) runRemove(ctx context.Context, op *Operation) {
	if err := p.teardown(ctx, op); err != nil {
		op.transition(StateFailed, "teardown incomplete")
		op.finish(fmt.Errorf("%w: %w", ErrProvisionFailed, err))
		return
	}
	op.transition(StateCommitted, "")
	op.finish(nil)
}

// compensate undoes whatever the operation may have done. The operation ends
// rolled_back with cause, or failed if the undo itself failed.
func (p *Provisioner) compensate(ctx context.Context, op *Operation, cause error) {
	p.logger.Warn("Operation %s: %v, rolling back", op.ID, cause)
	op.transition(StateRollingBack, cause.Error())

	if err := p.teardown(ctx, op); err != nil {
		op.transition(StateFailed, err.Error())
		op.finish(fmt.Errorf("%w: %w", ErrManualIntervention, errors.Join(cause, err)))
		return
	}
	op.transition(StateRolledBack, "")
	op.finish(cause)
}

// teardown removes DNS records, the certificate and the proxy block. DNS and
// config failures are returned after every step has been attempted; a
// certificate failure is only logged.
func (p *Provisioner) teardown(ctx context.Context, op *Operation) error {
	var errs []error
	name := op.Domain

	if err := p.runStep(ctx, op, "dns-remove", func(ctx context.Context) error {
		return p.dns.RemoveRecords(ctx, name)
	}); err != nil {
		errs = append(errs, fmt.Errorf("dns: %w", err))
	}

	if err := p.runStep(ctx, op, "certificate-remove", func(ctx context.Context) error {
		return p.certs.Revoke(ctx, name)
	}); err != nil {
		p.logger.Warn("Operation %s: certificate removal for %s failed: %v", op.ID, name, err)
	}

	if err := p.runStep(ctx, op, "config-remove", func(ctx context.Context) error {
		_, err := p.store.Remove(ctx, name)
		return err
	}); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}

	return errors.Join(errs...)
}

func (p *Provisioner) runStep(ctx context.Context, op *Operation, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "step."+name)
	defer span.End()

	started := time.Now()
	err := fn(ctx)
	op.recordStep(name, started, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Warn("Operation %s: step %s failed: %v", op.ID, name, err)
		return err
	}
	p.logger.Debug("Operation %s: step %s done in %s", op.ID, name, time.Since(started))
	return nil
}

func (p *Provisioner) escalate(ctx context.Context, op *Operation) {
	p.logger.Error("Operation %s on %s needs manual intervention: %v", op.ID, op.Domain, op.Err)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	msg := fmt.Sprintf("Operation %s (%s %s) could not be rolled back.\n%v", op.ID, op.Kind, op.Domain, op.Err)
	if err := p.notifier.Notify(ctx, "domain-manager: manual intervention required", msg); err != nil {
		p.logger.Error("Failed to send notification: %v", err)
	}
}
