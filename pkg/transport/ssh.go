/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/carverauto/patchradar/pkg/logger"
	"github.com/carverauto/patchradar/pkg/models"
)

const (
	defaultSSHPort       = 22
	defaultMaxDialElapse = 30 * time.Second
)

var errNoAuthMethods = errors.New("no SSH authentication methods available (no agent, no key file)")

// SSHConfig controls how the dialer authenticates and validates hosts.
// Key and agent provisioning is the operator's problem; the dialer only
// consumes what is already set up.
type SSHConfig struct {
	PrivateKeyPath        string `json:"private_key_path,omitempty" yaml:"private_key_path,omitempty"`
	KnownHostsFile        string `json:"known_hosts_file,omitempty" yaml:"known_hosts_file,omitempty"`
	InsecureIgnoreHostKey bool   `json:"insecure_ignore_host_key,omitempty" yaml:"insecure_ignore_host_key,omitempty"`

	// MaxDialElapsed bounds the total connect retry budget per dial.
	MaxDialElapsed time.Duration `json:"-" yaml:"-"`
}

// SSHDialer is the production Dialer backed by golang.org/x/crypto/ssh.
type SSHDialer struct {
	config *SSHConfig
	logger logger.Logger
}

var _ Dialer = (*SSHDialer)(nil)

// NewSSHDialer creates an SSH dialer. A nil config uses defaults: agent
// authentication and ~/.ssh/known_hosts host key checking.
func NewSSHDialer(config *SSHConfig, log logger.Logger) *SSHDialer {
	if config == nil {
		config = &SSHConfig{}
	}

	return &SSHDialer{config: config, logger: log}
}

// Dial opens an SSH session to the target. Transient connect failures are
// retried with exponential backoff inside the target's connect budget;
// authentication rejections are permanent and classified as such.
func (d *SSHDialer) Dial(ctx context.Context, target Target) (Session, error) {
	auth, cleanup, err := d.authMethods()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrAuthentication, err)
	}
	defer cleanup()

	hostKeyCallback, err := d.hostKeyCallback()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrConnection, err)
	}

	port := target.Port
	if port == 0 {
		port = defaultSSHPort
	}

	addr := net.JoinHostPort(target.Address, strconv.Itoa(port))

	clientConfig := &ssh.ClientConfig{
		User:            target.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         target.connectTimeout(),
	}

	maxElapsed := dialBudget(&target, d.config)

	operation := func() (*ssh.Client, error) {
		client, dialErr := dialOnce(ctx, addr, clientConfig)
		if dialErr != nil {
			if isAuthError(dialErr) {
				return nil, backoff.Permanent(fmt.Errorf("%w: %w", models.ErrAuthentication, dialErr))
			}

			return nil, fmt.Errorf("%w: %w", models.ErrConnection, dialErr)
		}

		return client, nil
	}

	bo := backoff.NewExponentialBackOff()

	client, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxElapsedTime(maxElapsed))
	if err != nil {
		d.logger.Debug().Err(err).Str("addr", addr).Msg("SSH dial failed")
		return nil, err
	}

	return &sshSession{
		client:  client,
		timeout: target.commandTimeout(),
		logger:  d.logger,
	}, nil
}

// dialBudget resolves the total retry budget: the target override wins,
// then the dialer configuration, then the package default.
func dialBudget(target *Target, config *SSHConfig) time.Duration {
	if target.MaxDialElapsed > 0 {
		return target.MaxDialElapsed
	}

	if config.MaxDialElapsed > 0 {
		return config.MaxDialElapsed
	}

	return defaultMaxDialElapse
}

func dialOnce(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: config.Timeout}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// Bound the SSH handshake too; a TCP connect that succeeds against a
	// wedged sshd must not hang past the connect timeout.
	if err = conn.SetDeadline(time.Now().Add(config.Timeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

// authMethods assembles auth from a configured key file and the running
// SSH agent. The returned cleanup closes the agent socket once the
// handshake no longer needs the signers.
func (d *SSHDialer) authMethods() ([]ssh.AuthMethod, func(), error) {
	var methods []ssh.AuthMethod

	cleanup := func() {}

	if d.config.PrivateKeyPath != "" {
		keyData, err := os.ReadFile(d.config.PrivateKeyPath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("read private key: %w", err)
		}

		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, cleanup, fmt.Errorf("parse private key: %w", err)
		}

		methods = append(methods, ssh.PublicKeys(signer))
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			d.logger.Warn().Err(err).Msg("SSH agent socket set but unreachable")
		} else {
			ag := agent.NewClient(conn)
			methods = append(methods, ssh.PublicKeysCallback(ag.Signers))
			cleanup = func() { _ = conn.Close() }
		}
	}

	if len(methods) == 0 {
		return nil, cleanup, errNoAuthMethods
	}

	return methods, cleanup, nil
}

func (d *SSHDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.config.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil // #nosec G106 - explicit operator opt-in
	}

	path := d.config.KnownHostsFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve known_hosts path: %w", err)
		}

		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("load known_hosts %q: %w", path, err)
	}

	return callback, nil
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()

	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "no supported methods remain")
}

type sshSession struct {
	client  *ssh.Client
	timeout time.Duration
	logger  logger.Logger
}

// Run executes one command with no stdin attached, so anything that
// prompts for interactive input fails or blocks into the timeout instead
// of hanging the worker.
func (s *sshSession) Run(ctx context.Context, command string) (*CommandResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sess, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: new session: %w", models.ErrConnection, err)
	}
	defer func() {
		_ = sess.Close()
	}()

	var stdout, stderr bytes.Buffer

	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)

	go func() {
		done <- sess.Run(command)
	}()

	select {
	case <-runCtx.Done():
		// Best effort: ask the remote side to stop, then tear the channel
		// down so the goroutine above unblocks.
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()

		return nil, fmt.Errorf("%w: command timed out after %s", models.ErrConnection, s.timeout)
	case err = <-done:
	}

	result := &CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}

		return nil, fmt.Errorf("%w: %w", models.ErrConnection, err)
	}

	return result, nil
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
