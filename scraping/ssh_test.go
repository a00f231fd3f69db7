package scraping

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"dev.hon.one/routewatch/common"
)

type execResult struct {
	stdout     string
	stderr     string
	exitStatus uint32
}

// Minimal SSH server answering exec requests.
func startTestSSHServer(t *testing.T, authorizedKey ssh.PublicKey, handler func(command string) execResult) common.Device {
	t.Helper()

	_, hostPrivateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostSigner, err := ssh.NewSignerFromKey(hostPrivateKey)
	require.NoError(t, err)

	serverConfig := &ssh.ServerConfig{
		PasswordCallback: func(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if conn.User() == "admin" && string(password) == "secret" {
				return nil, nil
			}
			return nil, assert.AnError
		},
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if authorizedKey != nil && string(key.Marshal()) == string(authorizedKey.Marshal()) {
				return nil, nil
			}
			return nil, assert.AnError
		},
	}
	serverConfig.AddHostKey(hostSigner)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go serveTestSSHConn(conn, serverConfig, handler)
		}
	}()

	host, portString, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portString)
	require.NoError(t, err)
	return common.Device{Address: host, Port: uint(port), Kind: common.DeviceKindCisco, CredentialID: "lab"}
}

func serveTestSSHConn(conn net.Conn, config *ssh.ServerConfig, handler func(command string) execResult) {
	serverConn, channels, requests, err := ssh.NewServerConn(conn, config)
	if err != nil {
		conn.Close()
		return
	}
	defer serverConn.Close()
	go ssh.DiscardRequests(requests)

	for newChannel := range channels {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		channel, channelRequests, err := newChannel.Accept()
		if err != nil {
			return
		}
		go func() {
			defer channel.Close()
			for request := range channelRequests {
				if request.Type != "exec" {
					request.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(request.Payload, &payload); err != nil {
					request.Reply(false, nil)
					return
				}
				request.Reply(true, nil)
				result := handler(payload.Command)
				channel.Write([]byte(result.stdout))
				channel.Stderr().Write([]byte(result.stderr))
				channel.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{result.exitStatus}))
				return
			}
		}()
	}
}

func routeHandler(command string) execResult {
	if command == "show ip route" {
		return execResult{stdout: "C    192.168.1.0/24 is directly connected, FastEthernet0/0\r\n"}
	}
	return execResult{stderr: "% Invalid input detected\n", exitStatus: 1}
}

func TestSSHExecutor_Password(t *testing.T) {
	device := startTestSSHServer(t, nil, routeHandler)
	executor := &SSHExecutor{Timeout: 5 * time.Second}

	output, err := executor.Execute(context.Background(), device, common.Credential{Username: "admin", Password: "secret"}, "show ip route")
	require.NoError(t, err)
	assert.Equal(t, "C    192.168.1.0/24 is directly connected, FastEthernet0/0\r\n", output)
}

func TestSSHExecutor_NonZeroExitStatus(t *testing.T) {
	device := startTestSSHServer(t, nil, routeHandler)
	executor := &SSHExecutor{Timeout: 5 * time.Second}

	output, err := executor.Execute(context.Background(), device, common.Credential{Username: "admin", Password: "secret"}, "show interfaces")
	require.NoError(t, err)
	assert.Empty(t, output)
}

func TestSSHExecutor_PrivateKey(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPublicKey, err := ssh.NewPublicKey(publicKey)
	require.NoError(t, err)
	keyBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyBytes}), 0o600))

	device := startTestSSHServer(t, sshPublicKey, routeHandler)
	executor := &SSHExecutor{Timeout: 5 * time.Second}

	output, err := executor.Execute(context.Background(), device, common.Credential{Username: "admin", PrivateKeyPath: keyPath}, "show ip route")
	require.NoError(t, err)
	assert.Contains(t, output, "192.168.1.0/24")
}

func TestSSHExecutor_AuthRejected(t *testing.T) {
	device := startTestSSHServer(t, nil, routeHandler)
	executor := &SSHExecutor{Timeout: 5 * time.Second}

	_, err := executor.Execute(context.Background(), device, common.Credential{Username: "admin", Password: "wrong"}, "show ip route")
	var transportErr *common.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "connect", transportErr.Op)
}

func TestSSHExecutor_ConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	executor := &SSHExecutor{Timeout: time.Second}
	device := common.Device{Address: "127.0.0.1", Port: uint(port)}
	_, err = executor.Execute(context.Background(), device, common.Credential{Username: "admin", Password: "secret"}, "show ip route")
	var transportErr *common.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "127.0.0.1", transportErr.Address)
}

func TestSSHExecutor_InvalidCredential(t *testing.T) {
	executor := &SSHExecutor{Timeout: time.Second}
	device := common.Device{Address: "127.0.0.1", Port: 1}

	_, err := executor.Execute(context.Background(), device, common.Credential{Username: "admin"}, "show ip route")
	assert.Error(t, err)

	_, err = executor.Execute(context.Background(), device, common.Credential{Username: "admin", PrivateKeyPath: filepath.Join(t.TempDir(), "missing")}, "show ip route")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHandshake_DeadlineError(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	require.NoError(t, client.Close())

	sshConfig, err := buildSSHConfig(common.Credential{Username: "admin", Password: "secret"}, time.Second)
	require.NoError(t, err)
	sshClient, err := handshake(client, "pipe:22", sshConfig, time.Second)
	assert.Nil(t, sshClient)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Contains(t, err.Error(), "set handshake deadline")
}

func TestSSHAddress(t *testing.T) {
	assert.Equal(t, "10.0.0.1:22", sshAddress(common.Device{Address: "10.0.0.1"}))
	assert.Equal(t, "10.0.0.1:2222", sshAddress(common.Device{Address: "10.0.0.1", Port: 2222}))
	assert.Equal(t, "[2001:db8::1]:22", sshAddress(common.Device{Address: "2001:db8::1"}))
}
