package certbot

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gondar-software/domain-manager/internal/logging"
	"github.com/gondar-software/domain-manager/internal/system"
)

// ReissuePolicy decides whether Issue contacts the CA when material for the
// name is already on disk.
type ReissuePolicy string

const (
	// ReissueIfMissing trusts any existing certificate.
	ReissueIfMissing ReissuePolicy = "if-missing"
	// ReissueIfExpiring reissues when the certificate is unreadable, does not
	// cover the name and its www alias, or expires within RenewBefore.
	ReissueIfExpiring ReissuePolicy = "if-expiring"
	// ReissueAlways contacts the CA on every Issue.
	ReissueAlways ReissuePolicy = "always"
)

var ErrCertbotFailed = errors.New("certbot failed")

type Config struct {
	Binary         string
	LetsEncryptDir string
	Email          string
	Policy         ReissuePolicy
	RenewBefore    time.Duration
	Timeout        time.Duration
	ChallengePort  int
}

// Issuer obtains certificates with certbot's standalone authenticator.
// The challenge needs exclusive use of the HTTP port, so calls must not run
// concurrently.
type Issuer struct {
	cfg    Config
	runner system.Runner
	now    func() time.Time
	logger *logging.Logger
}

func NewIssuer(cfg Config, runner system.Runner) *Issuer {
	if cfg.Binary == "" {
		cfg.Binary = "certbot"
	}
	if cfg.LetsEncryptDir == "" {
		cfg.LetsEncryptDir = "/etc/letsencrypt"
	}
	if cfg.Policy == "" {
		cfg.Policy = ReissueIfMissing
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	if cfg.ChallengePort == 0 {
		cfg.ChallengePort = 80
	}
	return &Issuer{cfg: cfg, runner: runner, now: time.Now, logger: logging.GetGlobalLogger()}
}

func (i *Issuer) liveDir(name string) string {
	return filepath.Join(i.cfg.LetsEncryptDir, "live", name)
}

// CertificatePath is the full chain file nginx is pointed at.
func (i *Issuer) CertificatePath(name string) string {
	return filepath.Join(i.liveDir(name), "fullchain.pem")
}

// Exists reports whether certificate material for name is on disk.
func (i *Issuer) Exists(name string) bool {
	_, err := os.Stat(i.CertificatePath(name))
	return err == nil
}

// NeedsIssue applies the reissue policy and explains the decision.
func (i *Issuer) NeedsIssue(name string) (bool, string) {
	if !i.Exists(name) {
		return true, "no certificate on disk"
	}

	switch i.cfg.Policy {
	case ReissueAlways:
		return true, "policy is always"
	case ReissueIfExpiring:
		cert, err := i.readCertificate(name)
		if err != nil {
			return true, fmt.Sprintf("unreadable certificate: %v", err)
		}
		for _, host := range []string{name, "www." + name} {
			if err := cert.VerifyHostname(host); err != nil {
				return true, fmt.Sprintf("certificate does not cover %s", host)
			}
		}
		if remaining := cert.NotAfter.Sub(i.now()); remaining < i.cfg.RenewBefore {
			return true, fmt.Sprintf("certificate expires %s", cert.NotAfter.Format(time.RFC3339))
		}
		return false, "certificate is valid"
	default:
		return false, "certificate exists"
	}
}

func (i *Issuer) readCertificate(name string) (*x509.Certificate, error) {
	data, err := os.ReadFile(i.CertificatePath(name))
	if err != nil {
		return nil, err
	}
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, errors.New("no certificate in PEM data")
		}
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
}

// Issue obtains a certificate for name and www.name unless the policy says
// the existing one is good enough.
func (i *Issuer) Issue(ctx context.Context, name string) error {
	needed, reason := i.NeedsIssue(name)
	if !needed {
		i.logger.Info("Skipping certificate for %s: %s", name, reason)
		return nil
	}
	i.logger.Info("Requesting certificate for %s: %s", name, reason)

	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	// fuser exits non-zero when nothing is listening
	if _, err := i.runner.Run(ctx, "fuser", "-k", fmt.Sprintf("%d/tcp", i.cfg.ChallengePort)); err != nil {
		i.logger.Debug("fuser on port %d: %v", i.cfg.ChallengePort, err)
	}

	args := []string{
		"certonly", "--standalone",
		"-d", name,
		"-d", "www." + name,
		"--non-interactive",
		"--agree-tos",
		"--expand",
		"--force-renewal",
	}
	if i.cfg.ChallengePort != 80 {
		args = append(args, "--http-01-port", fmt.Sprint(i.cfg.ChallengePort))
	}
	if i.cfg.Email != "" {
		args = append(args, "--email", i.cfg.Email)
	} else {
		args = append(args, "--register-unsafely-without-email")
	}

	if _, err := i.runner.Run(ctx, i.cfg.Binary, args...); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCertbotFailed, name, err)
	}
	i.logger.Info("Certificate for %s issued", name)
	return nil
}

// Revoke deletes the local certificate material for name. It is a no-op when
// nothing exists.
func (i *Issuer) Revoke(ctx context.Context, name string) error {
	if _, err := os.Stat(i.liveDir(name)); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	_, err := i.runner.Run(ctx, i.cfg.Binary, "delete", "--cert-name", name, "--non-interactive")
	if err == nil {
		i.logger.Info("Certificate for %s deleted", name)
		return nil
	}
	i.logger.Warn("certbot delete for %s failed, removing files: %v", name, err)

	if _, rmErr := i.runner.Run(ctx, "rm", "-rf", i.liveDir(name)); rmErr != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrCertbotFailed, name, errors.Join(err, rmErr))
	}
	return nil
}
