package scraping

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"dev.hon.one/routewatch/common"
)

const defaultSSHPort = 22

// Executor - Runs a single command on a device and returns its output.
type Executor interface {
	Execute(ctx context.Context, device common.Device, credential common.Credential, command string) (string, error)
}

// SSHExecutor - Executor opening a new SSH connection for every command.
// Appropriate if new connections are cheap for the device and shells are troublesome (output problems).
type SSHExecutor struct {
	Timeout time.Duration
}

var _ Executor = (*SSHExecutor)(nil)

func buildSSHConfig(credential common.Credential, timeout time.Duration) (*ssh.ClientConfig, error) {
	authMethods := make([]ssh.AuthMethod, 0)
	if credential.Password != "" {
		password := credential.Password
		authMethods = append(authMethods, ssh.Password(password))
		// Many network devices only offer keyboard-interactive
		authMethods = append(authMethods, ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}
			return answers, nil
		}))
	}
	if credential.PrivateKeyPath != "" {
		privkey, err := os.ReadFile(credential.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read SSH private key %s: %w", credential.PrivateKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(privkey)
		if err != nil {
			return nil, fmt.Errorf("parse SSH private key %s: %w", credential.PrivateKeyPath, err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}
	if len(authMethods) == 0 {
		return nil, errors.New("credential has neither password nor private key")
	}

	return &ssh.ClientConfig{
		User:            credential.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Auth:            authMethods,
		Timeout:         timeout,
	}, nil
}

func sshAddress(device common.Device) string {
	port := uint(defaultSSHPort)
	if device.Port > 0 {
		port = device.Port
	}
	return net.JoinHostPort(device.Address, fmt.Sprint(port))
}

func (executor *SSHExecutor) openClient(ctx context.Context, device common.Device, credential common.Credential) (*ssh.Client, error) {
	sshConfig, err := buildSSHConfig(credential, executor.Timeout)
	if err != nil {
		return nil, err
	}

	fullAddress := sshAddress(device)
	dialer := net.Dialer{Timeout: executor.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", fullAddress)
	if err != nil {
		return nil, err
	}
	sshClient, err := handshake(conn, fullAddress, sshConfig, executor.Timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return sshClient, nil
}

// Run the client handshake on an open connection. The timeout bounds the handshake only.
func handshake(conn net.Conn, address string, sshConfig *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, fmt.Errorf("set handshake deadline: %w", err)
		}
	}
	clientConn, channels, requests, err := ssh.NewClientConn(conn, address, sshConfig)
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		clientConn.Close()
		return nil, fmt.Errorf("clear handshake deadline: %w", err)
	}

	return ssh.NewClient(clientConn, channels, requests), nil
}

// Execute - Connect, run the command, read all output and disconnect.
// A non-zero exit status is not an error, the output is still returned.
func (executor *SSHExecutor) Execute(ctx context.Context, device common.Device, credential common.Credential, command string) (string, error) {
	sshClient, err := executor.openClient(ctx, device, credential)
	if err != nil {
		return "", &common.TransportError{Address: device.Address, Op: "connect", Err: err}
	}
	defer sshClient.Close()

	// Tear down the connection if cancelled while running
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			sshClient.Close()
		case <-finished:
		}
	}()

	session, err := sshClient.NewSession()
	if err != nil {
		return "", &common.TransportError{Address: device.Address, Op: "session", Err: err}
	}
	defer session.Close()

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	log.WithFields(log.Fields{
		"address": device.Address,
		"command": command,
	}).Trace("Running SSH command")
	err = session.Run(command)
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		log.WithFields(log.Fields{
			"address":     device.Address,
			"command":     command,
			"exit_status": exitErr.ExitStatus(),
		}).Tracef("SSH command exited with error: %v", strings.TrimSpace(stderr.String()))
	} else if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", &common.TransportError{Address: device.Address, Op: "exec", Err: err}
	}
	if stderr.Len() > 0 {
		log.WithFields(log.Fields{
			"address": device.Address,
		}).Tracef("Received on STDERR: %v", strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}
