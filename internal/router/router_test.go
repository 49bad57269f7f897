// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turnrelay/core/internal/auth"
	"github.com/turnrelay/core/internal/codec"
	"github.com/turnrelay/core/internal/session"
)

const testRealm = "example.org"

func testKey(username string) []byte {
	// A fixed per-user key, not the MD5(username:realm:password) derivation
	// internal/authtest uses.
	return []byte("fixed-test-key-" + username)
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	relay, err := session.NewPortRangeRelay(net.ParseIP("127.0.0.1"), nil, codec.RequestedFamilyIPv4, 52000, 52050, nil)
	require.NoError(t, err)
	sessions := session.NewManager(session.ManagerConfig{Relay: relay})
	return New(Config{
		Realm: testRealm,
		AuthHandler: func(ra *auth.RequestAttributes) (string, []byte, bool) {
			return "alice", testKey("alice"), true
		},
		Sessions:    sessions,
		NonceSecret: []byte("test-secret"),
	})
}

type recordingResponder struct {
	raw []byte
}

func (r *recordingResponder) Respond(b []byte) error {
	r.raw = append([]byte(nil), b...)
	return nil
}

func testTID() [codec.TransactionIDSize]byte {
	var tid [codec.TransactionIDSize]byte
	for i := range tid {
		tid[i] = byte(i + 1)
	}
	return tid
}

func srcAddr() net.Addr   { return &net.UDPAddr{IP: net.ParseIP("198.51.100.9"), Port: 4000} }
func localAddr() net.Addr { return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 3478} }

func mustIdentifier(t *testing.T) session.Identifier {
	t.Helper()
	id, err := session.NewIdentifier(srcAddr(), localAddr(), codec.TransportUDP)
	require.NoError(t, err)
	return id
}

func TestHandleBindingIsUnauthenticated(t *testing.T) {
	r := newTestRouter(t)

	tid := testTID()
	b := codec.NewBuilder(codec.NewType(codec.MethodBinding, codec.ClassRequest), tid)
	raw, err := b.Flush(nil, true)
	require.NoError(t, err)

	dec := codec.NewDecoder()
	msg, err := dec.DecodeMessage(raw, codec.TransportUDP)
	require.NoError(t, err)

	resp := &recordingResponder{}
	req := &Request{
		Message:    msg,
		Transport:  codec.TransportUDP,
		SrcAddr:    srcAddr(),
		LocalAddr:  localAddr(),
		Responder:  resp,
		Now:        time.Now(),
		Identifier: mustIdentifier(t),
	}

	require.NoError(t, r.HandleMessage(req))
	require.NotNil(t, resp.raw)

	out, err := dec.DecodeMessage(resp.raw, codec.TransportUDP)
	require.NoError(t, err)
	assert.Equal(t, codec.MethodBinding, out.Type.Method)
	assert.Equal(t, codec.ClassSuccessResponse, out.Type.Class)
	assert.True(t, out.Contains(codec.AttrXORMappedAddress))
}

func TestAllocateChallengesWithoutCredentials(t *testing.T) {
	r := newTestRouter(t)

	tid := testTID()
	b := codec.NewBuilder(codec.NewType(codec.MethodAllocate, codec.ClassRequest), tid)
	b.Add(codec.AttrRequestedTransport, codec.EncodeRequestedTransport(codec.ProtoUDP))
	raw, err := b.Flush(nil, true)
	require.NoError(t, err)

	dec := codec.NewDecoder()
	msg, err := dec.DecodeMessage(raw, codec.TransportUDP)
	require.NoError(t, err)

	resp := &recordingResponder{}
	req := &Request{
		Message:    msg,
		Transport:  codec.TransportUDP,
		SrcAddr:    srcAddr(),
		LocalAddr:  localAddr(),
		Responder:  resp,
		Now:        time.Now(),
		Identifier: mustIdentifier(t),
	}

	require.NoError(t, r.HandleMessage(req))
	require.NotNil(t, resp.raw)

	out, err := dec.DecodeMessage(resp.raw, codec.TransportUDP)
	require.NoError(t, err)
	assert.Equal(t, codec.ClassErrorResponse, out.Type.Class)
	assert.True(t, out.Contains(codec.AttrNonce))
	assert.True(t, out.Contains(codec.AttrRealm))

	errRaw, err := out.Get(codec.AttrErrorCode)
	require.NoError(t, err)
	ec, err := codec.DecodeErrorCode(errRaw)
	require.NoError(t, err)
	assert.Equal(t, 401, ec.Code)
}

func buildAuthenticatedAllocate(t *testing.T, r *Router, now time.Time, username string, key []byte) *codec.Message {
	t.Helper()
	nonce := r.nonce.Generate(now)

	tid := testTID()
	b := codec.NewBuilder(codec.NewType(codec.MethodAllocate, codec.ClassRequest), tid)
	b.Add(codec.AttrRequestedTransport, codec.EncodeRequestedTransport(codec.ProtoUDP))
	b.Add(codec.AttrUsername, []byte(username))
	b.Add(codec.AttrRealm, []byte(testRealm))
	b.Add(codec.AttrNonce, []byte(nonce))
	raw, err := b.Flush(key, false)
	require.NoError(t, err)

	dec := codec.NewDecoder()
	msg, err := dec.DecodeMessage(raw, codec.TransportUDP)
	require.NoError(t, err)
	return msg
}

func TestAllocateSucceedsWithValidCredentials(t *testing.T) {
	r := newTestRouter(t)
	now := time.Now()
	msg := buildAuthenticatedAllocate(t, r, now, "alice", testKey("alice"))

	resp := &recordingResponder{}
	req := &Request{
		Message:    msg,
		Transport:  codec.TransportUDP,
		SrcAddr:    srcAddr(),
		LocalAddr:  localAddr(),
		Responder:  resp,
		Now:        now,
		Identifier: mustIdentifier(t),
	}

	require.NoError(t, r.HandleMessage(req))
	require.NotNil(t, resp.raw)

	dec := codec.NewDecoder()
	out, err := dec.DecodeMessage(resp.raw, codec.TransportUDP)
	require.NoError(t, err)
	assert.Equal(t, codec.ClassSuccessResponse, out.Type.Class)
	assert.True(t, out.Contains(codec.AttrXORRelayedAddress))
	assert.True(t, out.Contains(codec.AttrLifetime))

	alloc, ok := r.cfg.Sessions.Get(req.Identifier)
	require.True(t, ok)
	assert.NotNil(t, alloc.RelayUDP)
	alloc.Close()
}

func TestAllocateRejectsWrongCredentials(t *testing.T) {
	r := newTestRouter(t)
	now := time.Now()
	msg := buildAuthenticatedAllocate(t, r, now, "alice", []byte("not-the-right-key"))

	resp := &recordingResponder{}
	req := &Request{
		Message:    msg,
		Transport:  codec.TransportUDP,
		SrcAddr:    srcAddr(),
		LocalAddr:  localAddr(),
		Responder:  resp,
		Now:        now,
		Identifier: mustIdentifier(t),
	}

	require.NoError(t, r.HandleMessage(req))
	require.NotNil(t, resp.raw)

	dec := codec.NewDecoder()
	out, err := dec.DecodeMessage(resp.raw, codec.TransportUDP)
	require.NoError(t, err)
	assert.Equal(t, codec.ClassErrorResponse, out.Type.Class)

	errRaw, err := out.Get(codec.AttrErrorCode)
	require.NoError(t, err)
	ec, err := codec.DecodeErrorCode(errRaw)
	require.NoError(t, err)
	assert.Equal(t, 441, ec.Code)
}

// buildAuthenticatedRequest builds a Request class request for method,
// with USERNAME/REALM/NONCE/MESSAGE-INTEGRITY already attached, plus
// whatever extra attributes the caller adds via fill.
func buildAuthenticatedRequest(t *testing.T, r *Router, now time.Time, username string, key []byte, method codec.Method, fill func(b *codec.Builder)) *codec.Message {
	t.Helper()
	nonce := r.nonce.Generate(now)

	tid := testTID()
	b := codec.NewBuilder(codec.NewType(method, codec.ClassRequest), tid)
	if fill != nil {
		fill(b)
	}
	b.Add(codec.AttrUsername, []byte(username))
	b.Add(codec.AttrRealm, []byte(testRealm))
	b.Add(codec.AttrNonce, []byte(nonce))
	raw, err := b.Flush(key, false)
	require.NoError(t, err)

	dec := codec.NewDecoder()
	msg, err := dec.DecodeMessage(raw, codec.TransportUDP)
	require.NoError(t, err)
	return msg
}

func peerAddrAttr(t *testing.T, tid [codec.TransactionIDSize]byte, ip string, port int) []byte {
	t.Helper()
	raw, err := codec.EncodeXORAddr(codec.Addr{IP: net.ParseIP(ip), Port: port}, tid)
	require.NoError(t, err)
	return raw
}

// TestChannelBindThenChannelDataRelay exercises scenario D: after a
// successful Allocate, a ChannelBind for a peer lets an inbound
// ChannelData frame on the client socket reach the allocation's relay
// socket addressed to that peer, and implicitly grants the peer a
// permission.
func TestChannelBindThenChannelDataRelay(t *testing.T) {
	r := newTestRouter(t)
	now := time.Now()
	id := mustIdentifier(t)

	allocMsg := buildAuthenticatedAllocate(t, r, now, "alice", testKey("alice"))
	allocResp := &recordingResponder{}
	require.NoError(t, r.HandleMessage(&Request{
		Message: allocMsg, Transport: codec.TransportUDP, SrcAddr: srcAddr(),
		LocalAddr: localAddr(), Responder: allocResp, Now: now, Identifier: id,
	}))
	require.NotNil(t, allocResp.raw)

	peerConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	defer peerConn.Close()
	peerPort := peerConn.LocalAddr().(*net.UDPAddr).Port

	tid := testTID()
	bindMsg := buildAuthenticatedRequest(t, r, now, "alice", testKey("alice"), codec.MethodChannelBind, func(b *codec.Builder) {
		b.Add(codec.AttrChannelNumber, codec.EncodeChannelNumber(0x4000))
		b.Add(codec.AttrXORPeerAddress, peerAddrAttr(t, tid, "127.0.0.1", peerPort))
	})

	bindResp := &recordingResponder{}
	require.NoError(t, r.HandleMessage(&Request{
		Message: bindMsg, Transport: codec.TransportUDP, SrcAddr: srcAddr(),
		LocalAddr: localAddr(), Responder: bindResp, Now: now, Identifier: id,
	}))
	dec := codec.NewDecoder()
	out, err := dec.DecodeMessage(bindResp.raw, codec.TransportUDP)
	require.NoError(t, err)
	assert.Equal(t, codec.ClassSuccessResponse, out.Type.Class)

	cdResp := &recordingResponder{}
	cdReq := &Request{
		Message: nil, Transport: codec.TransportUDP, SrcAddr: srcAddr(),
		LocalAddr: localAddr(), Responder: cdResp, Now: now, Identifier: id,
	}
	cd := &codec.ChannelData{Number: 0x4000, Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	require.NoError(t, r.HandleChannelData(cd, cdReq))

	buf := make([]byte, 16)
	require.NoError(t, peerConn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := peerConn.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, buf[:n])

	alloc, ok := r.cfg.Sessions.Get(id)
	require.True(t, ok)
	defer alloc.Close()
	assert.True(t, alloc.Permissions.Allowed(netip.MustParseAddr("127.0.0.1"), now), "ChannelBind must implicitly grant the peer a permission")
}

// TestSendIndicationWithoutPermissionIsDropped exercises scenario E: a
// Send Indication to a peer the client never CreatePermission'd for is
// silently dropped, never producing a response.
func TestSendIndicationWithoutPermissionIsDropped(t *testing.T) {
	r := newTestRouter(t)
	now := time.Now()
	id := mustIdentifier(t)

	allocMsg := buildAuthenticatedAllocate(t, r, now, "alice", testKey("alice"))
	allocResp := &recordingResponder{}
	require.NoError(t, r.HandleMessage(&Request{
		Message: allocMsg, Transport: codec.TransportUDP, SrcAddr: srcAddr(),
		LocalAddr: localAddr(), Responder: allocResp, Now: now, Identifier: id,
	}))
	require.NotNil(t, allocResp.raw)
	alloc, ok := r.cfg.Sessions.Get(id)
	require.True(t, ok)
	defer alloc.Close()

	tid := testTID()
	b := codec.NewBuilder(codec.NewType(codec.MethodSend, codec.ClassIndication), tid)
	b.Add(codec.AttrXORPeerAddress, peerAddrAttr(t, tid, "192.0.2.8", 1000))
	b.Add(codec.AttrData, []byte("hello"))
	raw, err := b.Flush(nil, true)
	require.NoError(t, err)

	dec := codec.NewDecoder()
	msg, err := dec.DecodeMessage(raw, codec.TransportUDP)
	require.NoError(t, err)

	resp := &recordingResponder{}
	require.NoError(t, r.HandleMessage(&Request{
		Message: msg, Transport: codec.TransportUDP, SrcAddr: srcAddr(),
		LocalAddr: localAddr(), Responder: resp, Now: now, Identifier: id,
	}))
	assert.Nil(t, resp.raw, "indications must never produce a reply, permitted or not")
}

// TestRefreshWithZeroLifetimeDestroysAllocation exercises scenario F: a
// Refresh with LIFETIME=0 succeeds with LIFETIME=0 in the reply and frees
// the allocation, after which the session no longer exists.
func TestRefreshWithZeroLifetimeDestroysAllocation(t *testing.T) {
	r := newTestRouter(t)
	now := time.Now()
	id := mustIdentifier(t)

	allocMsg := buildAuthenticatedAllocate(t, r, now, "alice", testKey("alice"))
	allocResp := &recordingResponder{}
	require.NoError(t, r.HandleMessage(&Request{
		Message: allocMsg, Transport: codec.TransportUDP, SrcAddr: srcAddr(),
		LocalAddr: localAddr(), Responder: allocResp, Now: now, Identifier: id,
	}))
	require.NotNil(t, allocResp.raw)
	_, ok := r.cfg.Sessions.Get(id)
	require.True(t, ok)

	refreshMsg := buildAuthenticatedRequest(t, r, now, "alice", testKey("alice"), codec.MethodRefresh, func(b *codec.Builder) {
		b.Add(codec.AttrLifetime, codec.EncodeLifetime(0))
	})

	resp := &recordingResponder{}
	require.NoError(t, r.HandleMessage(&Request{
		Message: refreshMsg, Transport: codec.TransportUDP, SrcAddr: srcAddr(),
		LocalAddr: localAddr(), Responder: resp, Now: now, Identifier: id,
	}))
	require.NotNil(t, resp.raw)

	dec := codec.NewDecoder()
	out, err := dec.DecodeMessage(resp.raw, codec.TransportUDP)
	require.NoError(t, err)
	assert.Equal(t, codec.ClassSuccessResponse, out.Type.Class)
	lifetimeRaw, err := out.Get(codec.AttrLifetime)
	require.NoError(t, err)
	lifetime, err := codec.DecodeLifetime(lifetimeRaw)
	require.NoError(t, err)
	assert.EqualValues(t, 0, lifetime)

	_, ok = r.cfg.Sessions.Get(id)
	assert.False(t, ok, "allocation must be gone after Refresh(0)")
}

func TestAllocateRejectsStaleNonce(t *testing.T) {
	r := newTestRouter(t)
	old := time.Now().Add(-2 * nonceLifetime)
	msg := buildAuthenticatedAllocate(t, r, old, "alice", testKey("alice"))

	resp := &recordingResponder{}
	req := &Request{
		Message:    msg,
		Transport:  codec.TransportUDP,
		SrcAddr:    srcAddr(),
		LocalAddr:  localAddr(),
		Responder:  resp,
		Now:        time.Now(),
		Identifier: mustIdentifier(t),
	}

	require.NoError(t, r.HandleMessage(req))
	require.NotNil(t, resp.raw)

	dec := codec.NewDecoder()
	out, err := dec.DecodeMessage(resp.raw, codec.TransportUDP)
	require.NoError(t, err)

	errRaw, err := out.Get(codec.AttrErrorCode)
	require.NoError(t, err)
	ec, err := codec.DecodeErrorCode(errRaw)
	require.NoError(t, err)
	assert.Equal(t, 438, ec.Code)
}
