// Package musicclient implements the connection to an MPD-compatible
// music server: a one-worker command deque state machine with
// exponential reconnect backoff and a 3-failure command-drop policy,
// ported from the original carpi daemon's Mpd class (mpd.hpp/mpd.cpp).
// The wire protocol itself is handled by github.com/fhs/gompd/v2/mpd,
// since no example repo in the retrieval pack carries an MPD client of
// its own; the state machine around it is this package's contribution.
package musicclient

import (
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

// Backoff tuning, named after MPD_RECONNECT_DELAY/_ACCEL/_MAXDELAY.
const (
	ReconnectDelay    = 1 * time.Second
	ReconnectAccel    = 2.0
	ReconnectMaxDelay = 30 * time.Second
)

// maxCommandAttempts is the original's 3-failure drop threshold for
// everything except CONNECT, which always retries via WAIT_RECONNECT.
const maxCommandAttempts = 3

const stopTimeout = 3 * time.Second

// Client is the music client worker. PlayPause/Next/Prev only enqueue
// a command for the worker goroutine; all mpd.Client/mpd.Watcher access
// happens on that one goroutine, same as the original's single _thread.
type Client struct {
	network, addr string

	extCmd chan command
	doneCh chan struct{}

	conn    *mpd.Client
	watcher *mpd.Watcher

	cmds         []command
	cnxDelay     time.Duration
	attemptCount int

	connected atomic.Bool

	status struct {
		mu           chanMutex
		queueLength  int
		currentIndex int
	}
}

// chanMutex is a trivial mutual-exclusion primitive built on a
// buffered channel of size 1.
type chanMutex chan struct{}

func newChanMutex() chanMutex {
	c := make(chanMutex, 1)
	c <- struct{}{}
	return c
}

func (m chanMutex) lock()   { <-m }
func (m chanMutex) unlock() { m <- struct{}{} }

// New creates a Client that will connect to addr (e.g. "localhost:6600")
// over network (normally "tcp") once Start is called.
func New(network, addr string) (*Client, error) {
	if addr == "" {
		return nil, ErrAddrRequired
	}
	if network == "" {
		network = "tcp"
	}
	c := &Client{
		network:  network,
		addr:     addr,
		extCmd:   make(chan command, 16),
		doneCh:   make(chan struct{}),
		cnxDelay: ReconnectDelay,
	}
	c.status.mu = newChanMutex()
	return c, nil
}

// Start launches the worker goroutine, seeding the command deque with
// [CONNECT, STATUS] exactly as the original constructor does.
func (c *Client) Start() {
	c.cmds = []command{cmdConnect, cmdStatus}
	go c.run()
}

// Stop requests the worker exit and waits up to 3 seconds for it to do
// so, mirroring the LED controller's bounded shutdown join.
func (c *Client) Stop() error {
	c.extCmd <- cmdExit
	select {
	case <-c.doneCh:
		return nil
	case <-time.After(stopTimeout):
		return ErrStopTimeout
	}
}

// PlayPause is Mpd::playOrPause: toggles play/pause state.
func (c *Client) PlayPause() { c.send(cmdPlayPause) }

// Next is Mpd::next, subject to the corrected saturation rule: it plays
// currentIndex+1, and does nothing when the queue is empty or the
// current entry is already the last one (see nextIndex).
func (c *Client) Next() { c.send(cmdNext) }

// Prev is the natural dual of Next: plays max(currentIndex-1, 0).
func (c *Client) Prev() { c.send(cmdPrev) }

func (c *Client) send(cmd command) {
	select {
	case c.extCmd <- cmd:
	default:
		log.Printf("musicclient: command queue full, dropping %s", cmd)
	}
}

// IsQueueEmpty is Mpd::isQueueEmpty.
func (c *Client) IsQueueEmpty() bool {
	c.status.mu.lock()
	defer c.status.mu.unlock()
	return c.status.queueLength == 0
}

// QueueLength reports the most recently observed playlist length.
func (c *Client) QueueLength() int {
	length, _ := c.getStatus()
	return length
}

// CurrentIndex reports the most recently observed playlist position.
func (c *Client) CurrentIndex() int {
	_, index := c.getStatus()
	return index
}

// IsConnected reports whether the worker currently holds a live
// connection to the MPD server. Safe to call from any goroutine.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

func (c *Client) setStatus(queueLength, currentIndex int) {
	c.status.mu.lock()
	defer c.status.mu.unlock()
	c.status.queueLength = queueLength
	c.status.currentIndex = currentIndex
}

func (c *Client) getStatus() (queueLength, currentIndex int) {
	c.status.mu.lock()
	defer c.status.mu.unlock()
	return c.status.queueLength, c.status.currentIndex
}

// run is Mpd::_run.
func (c *Client) run() {
	for {
		c.drainExternal()

		var cmd command
		if len(c.cmds) > 0 {
			cmd, c.cmds = c.cmds[0], c.cmds[1:]
		} else {
			cmd = cmdIdle
		}

		switch cmd {
		case cmdConnect:
			c.execConnect()
		case cmdWaitReconnect:
			c.execWaitReconnect()
		case cmdIdle:
			c.execIdle()
		case cmdStatus:
			c.execStatus()
		case cmdPlayPause:
			c.execWithRetry(cmd, c.doPlayPause)
		case cmdNext:
			c.execWithRetry(cmd, c.doNext)
		case cmdPrev:
			c.execWithRetry(cmd, c.doPrev)
		case cmdExit:
			c.teardown()
			close(c.doneCh)
			return
		}
	}
}

func (c *Client) drainExternal() {
	for {
		select {
		case cmd := <-c.extCmd:
			c.receiveExternal(cmd)
		default:
			return
		}
	}
}

func (c *Client) receiveExternal(cmd command) {
	if cmd == cmdExit {
		c.pushFront(cmd)
		return
	}
	c.pushBack(cmd)
}

func (c *Client) pushFront(cmd command) {
	c.cmds = append([]command{cmd}, c.cmds...)
}

func (c *Client) pushBack(cmd command) {
	c.cmds = append(c.cmds, cmd)
}

// execConnect is Mpd::_connect: on failure, queues
// [WAIT_RECONNECT, CONNECT] at the front so the next two iterations
// retry after a backoff; on success resets the backoff delay.
func (c *Client) execConnect() {
	conn, err := mpd.Dial(c.network, c.addr)
	if err != nil {
		log.Printf("musicclient: connect to %s failed: %v", c.addr, err)
		c.cmds = append([]command{cmdWaitReconnect, cmdConnect}, c.cmds...)
		return
	}

	watcher, err := mpd.NewWatcher(c.network, c.addr, "", "player", "playlist")
	if err != nil {
		log.Printf("musicclient: idle watcher for %s failed: %v", c.addr, err)
		conn.Close()
		c.cmds = append([]command{cmdWaitReconnect, cmdConnect}, c.cmds...)
		return
	}

	c.conn = conn
	c.watcher = watcher
	c.cnxDelay = ReconnectDelay
	c.attemptCount = 0
	c.connected.Store(true)
}

// execWaitReconnect is Mpd::_waitReconnect: blocks for the current
// backoff delay, but stays responsive to an EXIT request the whole
// time, then accelerates the delay for next time.
func (c *Client) execWaitReconnect() {
	timer := time.NewTimer(c.cnxDelay)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			c.cnxDelay = time.Duration(float64(c.cnxDelay) * ReconnectAccel)
			if c.cnxDelay > ReconnectMaxDelay {
				c.cnxDelay = ReconnectMaxDelay
			}
			return
		case cmd := <-c.extCmd:
			if cmd == cmdExit {
				c.pushFront(cmdExit)
				return
			}
			c.pushBack(cmd)
		}
	}
}

// execIdle is Mpd::_idle/_waitEvent combined: blocks until the server
// reports a player/playlist change, the connection drops, or an
// external command arrives.
func (c *Client) execIdle() {
	if c.watcher == nil {
		c.pushFront(cmdConnect)
		return
	}

	select {
	case subsystem, ok := <-c.watcher.Event:
		if !ok {
			c.onConnectionLost()
			return
		}
		if subsystem == "player" || subsystem == "playlist" {
			c.pushFront(cmdStatus)
		}
	case err, ok := <-c.watcher.Error:
		if ok && err != nil {
			log.Printf("musicclient: idle connection error: %v", err)
			c.onConnectionLost()
		}
	case cmd := <-c.extCmd:
		c.receiveExternal(cmd)
	}
}

func (c *Client) onConnectionLost() {
	c.connected.Store(false)
	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.pushFront(cmdConnect)
}

// execStatus is Mpd::_getStatus.
func (c *Client) execStatus() {
	if c.conn == nil {
		c.onConnectionLost()
		return
	}
	attrs, err := c.conn.Status()
	if err != nil {
		c.onCommandFailure(cmdStatus)
		return
	}
	c.attemptCount = 0

	queueLength := atoiOr(attrs["playlistlength"], 0)
	currentIndex := atoiOr(attrs["song"], 0)
	c.setStatus(queueLength, currentIndex)
}

// execWithRetry runs fn (PLAY_PAUSE/NEXT/PREV) and routes failure
// through the shared 3-strikes drop policy.
func (c *Client) execWithRetry(cmd command, fn func() error) {
	if c.conn == nil {
		c.pushFront(cmdConnect)
		return
	}
	if err := fn(); err != nil {
		c.onCommandFailure(cmd)
		return
	}
	c.attemptCount = 0
}

// onCommandFailure is the shared tail of Mpd::_run's non-CONNECT error
// handling: retry the same command up to maxCommandAttempts times, then
// drop it; if the connection itself looks dead, reconnect first.
func (c *Client) onCommandFailure(cmd command) {
	c.attemptCount++
	if c.attemptCount >= maxCommandAttempts {
		log.Printf("musicclient: dropping %s after %d failed attempts", cmd, c.attemptCount)
		c.attemptCount = 0
		return
	}

	if c.conn == nil || c.conn.Ping() != nil {
		c.onConnectionLost()
		c.pushBack(cmd)
		return
	}
	c.pushFront(cmd)
}

func (c *Client) doPlayPause() error {
	attrs, err := c.conn.Status()
	if err != nil {
		return err
	}
	if attrs["state"] == "play" {
		return c.conn.Pause(true)
	}
	return c.conn.Play(-1)
}

// doNext is Mpd::_playNext with the Q2 correction applied: saturate at
// the last queue entry (current_index >= queue_length-1) instead of the
// original's inverted check.
func (c *Client) doNext() error {
	queueLength, currentIndex := c.getStatus()
	target, ok := nextIndex(queueLength, currentIndex)
	if !ok {
		return nil
	}
	return c.conn.Play(target)
}

// doPrev is the Q3-resolved symmetric dual of doNext: plays
// max(currentIndex-1, 0).
func (c *Client) doPrev() error {
	_, currentIndex := c.getStatus()
	return c.conn.Play(prevIndex(currentIndex))
}

// nextIndex is Mpd::_playNext's target computation with the Q2
// correction applied: saturate at the last queue entry
// (current_index >= queue_length-1) instead of the original's inverted
// check. ok is false when the queue is empty or already at the last
// entry, meaning NEXT is a true no-op: no play command is issued.
func nextIndex(queueLength, currentIndex int) (target int, ok bool) {
	if queueLength == 0 {
		return 0, false
	}
	if currentIndex < queueLength-1 {
		return currentIndex + 1, true
	}
	return currentIndex, false
}

// prevIndex is the Q3-resolved symmetric dual of nextIndex: plays
// max(currentIndex-1, 0).
func prevIndex(currentIndex int) int {
	if currentIndex-1 < 0 {
		return 0
	}
	return currentIndex - 1
}

func (c *Client) teardown() {
	if c.watcher != nil {
		c.watcher.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
