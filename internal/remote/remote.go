package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hogwarts-cloud/clonectl/internal/models"
	"golang.org/x/crypto/ssh"
)

const (
	DefaultPort        = "22"
	DefaultDialTimeout = 10 * time.Second
)

var ErrNoCredential = errors.New("credential has neither key nor password")

// Runner executes a single command on a remote target and returns its
// combined output. Implementations must not hold a connection between
// calls: guest network reconfiguration drops the channel, so every call
// dials fresh.
type Runner interface {
	Run(ctx context.Context, command string) (string, error)
}

// SSHRunner runs commands over SSH with key- or password-based auth.
type SSHRunner struct {
	host        string
	credential  models.Credential
	dialTimeout time.Duration
}

func (r *SSHRunner) Run(ctx context.Context, command string) (string, error) {
	auth, err := authMethods(r.credential)
	if err != nil {
		return "", err
	}

	config := &ssh.ClientConfig{
		User:            r.credential.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         r.dialTimeout,
	}

	dialer := net.Dialer{Timeout: r.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(r.host, DefaultPort))
	if err != nil {
		return "", fmt.Errorf("failed to dial target: %w", err)
	}

	clientConn, channels, requests, err := ssh.NewClientConn(conn, r.host, config)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("failed to establish ssh connection: %w", err)
	}

	client := ssh.NewClient(clientConn, channels, requests)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	output, err := session.CombinedOutput(command)
	if err != nil {
		return string(output), fmt.Errorf("failed to execute command: %w: %s", err, output)
	}

	return string(output), nil
}

func authMethods(credential models.Credential) ([]ssh.AuthMethod, error) {
	if len(credential.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(credential.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	if credential.Password != "" {
		return []ssh.AuthMethod{ssh.Password(credential.Password)}, nil
	}

	return nil, ErrNoCredential
}

func New(host string, credential models.Credential) *SSHRunner {
	return &SSHRunner{
		host:        host,
		credential:  credential,
		dialTimeout: DefaultDialTimeout,
	}
}
