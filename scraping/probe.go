package scraping

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const icmpProtocolIPv4 = 1

var icmpPayload = []byte("routewatch-probe")

// Prober - Checks if an address is reachable. Any failure means unreachable.
type Prober interface {
	Probe(ctx context.Context, address string, timeout time.Duration) bool
}

// ICMPProber - Prober sending a single ICMP echo request.
// Unprivileged mode uses datagram ICMP sockets (see net.ipv4.ping_group_range on Linux),
// privileged mode uses raw sockets.
type ICMPProber struct {
	Privileged bool
	sequence   uint32
}

var _ Prober = (*ICMPProber)(nil)

// Probe - Send one echo request and wait for the matching reply until the timeout.
func (prober *ICMPProber) Probe(ctx context.Context, address string, timeout time.Duration) bool {
	reachable, err := prober.probe(ctx, address, timeout)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"address": address,
		}).Trace("Probe failed")
		return false
	}
	return reachable
}

func (prober *ICMPProber) probe(ctx context.Context, address string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	resolveCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	targetIP, err := resolveIPv4(resolveCtx, address)
	if err != nil {
		return false, err
	}

	network := "udp4"
	var destination net.Addr = &net.UDPAddr{IP: targetIP}
	if prober.Privileged {
		network = "ip4:icmp"
		destination = &net.IPAddr{IP: targetIP}
	}
	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return false, err
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return false, err
	}

	// Unblock reads if cancelled
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			conn.SetDeadline(time.Now())
		case <-finished:
		}
	}()

	// Kernel replaces the ID for datagram sockets, so match on sequence and payload
	sequence := int(atomic.AddUint32(&prober.sequence, 1) & 0xffff)
	request := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   os.Getpid() & 0xffff,
			Seq:  sequence,
			Data: icmpPayload,
		},
	}
	requestBytes, err := request.Marshal(nil)
	if err != nil {
		return false, err
	}
	if _, err := conn.WriteTo(requestBytes, destination); err != nil {
		return false, err
	}

	buffer := make([]byte, 1500)
	for {
		n, peer, err := conn.ReadFrom(buffer)
		if err != nil {
			return false, err
		}
		if !addrIP(peer).Equal(targetIP) {
			continue
		}
		reply, err := icmp.ParseMessage(icmpProtocolIPv4, buffer[:n])
		if err != nil || reply.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := reply.Body.(*icmp.Echo)
		if !ok || echo.Seq != sequence || !bytes.Equal(echo.Data, icmpPayload) {
			continue
		}
		return true, nil
	}
}

func resolveIPv4(ctx context.Context, address string) (net.IP, error) {
	if ip := net.ParseIP(address); ip != nil {
		if ip.To4() == nil {
			return nil, errors.New("only IPv4 targets are supported")
		}
		return ip.To4(), nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, address)
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		if ip4 := addr.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, errors.New("no IPv4 address found")
}

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	}
	return nil
}
