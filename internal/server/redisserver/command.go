package redisserver

import (
	"bytes"
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/yndnr/memkv/internal/storage/memory"
	"github.com/yndnr/memkv/internal/telemetry/logger"
	"github.com/yndnr/memkv/internal/telemetry/metric"
	"github.com/yndnr/memkv/pkg/resp"
)

// Error replies shared by several commands.
const (
	errInvalidFormat = "ERR invalid command format"
	errUnknown       = "unknown command"
	errSyntax        = "ERR syntax error"
	errSetArity      = "Set requires a key, a value and optionally EX seconds"
	errNotInteger    = "ERR value is not an integer or out of range"
	errRateLimited   = "ERR rate limit exceeded"
)

// unknownLabel is the metrics label for unrecognized commands, keeping
// label cardinality bounded.
const unknownLabel = "unknown"

// CommandHandler executes decoded requests against the store.
// It is safe for concurrent use by all connections.
type CommandHandler struct {
	store   *memory.Store
	metrics *metric.Registry
	logger  *slog.Logger
	limiter *clientLimiter
}

// NewCommandHandler creates a handler. metrics may be nil. rateLimit is
// the per-client commands-per-second budget; 0 disables limiting.
func NewCommandHandler(store *memory.Store, metrics *metric.Registry, rateLimit int, logger *slog.Logger) *CommandHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{
		store:   store,
		metrics: metrics,
		logger:  logger,
		limiter: newClientLimiter(rateLimit),
	}
}

// SetRateLimit changes the per-client rate limit at runtime.
func (h *CommandHandler) SetRateLimit(perSecond int) {
	h.limiter.SetLimit(perSecond)
}

// Handle executes one request from client and returns the reply.
// It never panics on malformed input: every validation failure becomes
// an error reply.
func (h *CommandHandler) Handle(ctx context.Context, client string, msg resp.Message) resp.Message {
	name, args, err := msg.Command()
	if err != nil {
		h.observe(unknownLabel, resp.ErrorValue(errInvalidFormat), 0)
		return resp.ErrorValue(errInvalidFormat)
	}

	cmd := strings.ToUpper(name)
	start := time.Now()

	var reply resp.Message
	switch cmd {
	// Connection-level commands are never rate limited.
	case "PING":
		reply = h.handlePing(args)
	case "QUIT":
		reply = resp.SimpleStringValue("OK")
	default:
		if !h.limiter.Allow(client) {
			if h.metrics != nil {
				h.metrics.RateLimited.Inc()
			}
			h.logger.Debug("command rate limited",
				"conn_id", logger.ConnIDFromContext(ctx),
				"client", client,
				"command", cmd,
			)
			reply = resp.ErrorValue(errRateLimited)
			break
		}
		reply = h.dispatch(cmd, args)
	}

	label := strings.ToLower(cmd)
	if !isKnown(cmd) {
		label = unknownLabel
	}
	h.observe(label, reply, time.Since(start))

	if reply.Kind == resp.KindError {
		h.logger.Debug("command failed",
			"conn_id", logger.ConnIDFromContext(ctx),
			"command", label,
			"reply", reply.Text(),
		)
	}
	return reply
}

func (h *CommandHandler) dispatch(cmd string, args []resp.Message) resp.Message {
	switch cmd {
	case "ECHO":
		return h.handleEcho(args)
	case "GET":
		return h.handleGet(args)
	case "SET":
		return h.handleSet(args)
	case "DEL":
		return h.handleDel(args)
	case "EXISTS":
		return h.handleExists(args)
	case "EXPIRE":
		return h.handleExpire(args)
	case "PERSIST":
		return h.handlePersist(args)
	case "TTL":
		return h.handleTTL(args)
	case "KEYS":
		return h.handleKeys()
	case "DBSIZE":
		return resp.IntegerValue(int64(h.store.LiveLen()))
	case "FLUSHDB":
		h.store.FlushDB()
		return resp.SimpleStringValue("OK")
	default:
		return resp.ErrorValue(errUnknown)
	}
}

func (h *CommandHandler) observe(label string, reply resp.Message, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	status := metric.StatusOK
	if reply.Kind == resp.KindError {
		status = metric.StatusError
	}
	h.metrics.ObserveCommand(label, status, elapsed)
}

func isKnown(cmd string) bool {
	switch cmd {
	case "PING", "QUIT", "ECHO", "GET", "SET", "DEL", "EXISTS", "EXPIRE",
		"PERSIST", "TTL", "KEYS", "DBSIZE", "FLUSHDB":
		return true
	}
	return false
}

// isQuit reports whether msg is a QUIT request.
func isQuit(msg resp.Message) bool {
	name, _, err := msg.Command()
	return err == nil && strings.EqualFold(name, "QUIT")
}

// ============================================================
// Command Implementations
// ============================================================

// handlePing echoes its argument unchanged, like ECHO.
func (h *CommandHandler) handlePing(args []resp.Message) resp.Message {
	if len(args) > 0 {
		return args[0]
	}
	return resp.SimpleStringValue("PONG")
}

func (h *CommandHandler) handleEcho(args []resp.Message) resp.Message {
	if len(args) == 0 {
		return resp.ErrorValue("Echo requires a message")
	}
	return args[0]
}

func (h *CommandHandler) handleGet(args []resp.Message) resp.Message {
	key, ok := bulkArg(args, 0)
	if !ok {
		return resp.ErrorValue("Get requires a key")
	}
	value, found := h.store.Get(key)
	if !found {
		return resp.NullValue()
	}
	return resp.BulkBytesValue(value)
}

// handleSet accepts SET key value and SET key value EX seconds.
func (h *CommandHandler) handleSet(args []resp.Message) resp.Message {
	key, okKey := bulkArg(args, 0)
	_, okValue := bulkArg(args, 1)
	if !okKey || !okValue {
		return resp.ErrorValue("Set requires a key and a value")
	}
	value := args[1].Str

	switch len(args) {
	case 2:
		h.store.Set(key, value)
	case 4:
		opt, ok := bulkArg(args, 2)
		if !ok || !strings.EqualFold(opt, "EX") {
			return resp.ErrorValue(errSyntax)
		}
		seconds, ok := secondsArg(args, 3)
		if !ok {
			return resp.ErrorValue(errNotInteger)
		}
		h.store.SetWithExpiry(key, value, seconds)
	default:
		return resp.ErrorValue(errSetArity)
	}
	return resp.SimpleStringValue("OK")
}

func (h *CommandHandler) handleDel(args []resp.Message) resp.Message {
	key, ok := bulkArg(args, 0)
	if !ok {
		return resp.ErrorValue("Del requires a key")
	}
	h.store.Del(key)
	return resp.SimpleStringValue("OK")
}

func (h *CommandHandler) handleExists(args []resp.Message) resp.Message {
	key, ok := bulkArg(args, 0)
	if !ok {
		return resp.ErrorValue("Exists requires a key")
	}
	return boolReply(h.store.Exists(key))
}

func (h *CommandHandler) handleExpire(args []resp.Message) resp.Message {
	key, okKey := bulkArg(args, 0)
	_, okAmount := bulkArg(args, 1)
	if !okKey || !okAmount {
		return resp.ErrorValue("Expire requires a key and an amount")
	}
	seconds, ok := secondsArg(args, 1)
	if !ok {
		return resp.ErrorValue(errNotInteger)
	}
	return boolReply(h.store.Expire(key, seconds))
}

func (h *CommandHandler) handlePersist(args []resp.Message) resp.Message {
	key, ok := bulkArg(args, 0)
	if !ok {
		return resp.ErrorValue("Persist requires a key")
	}
	return boolReply(h.store.Persist(key))
}

// handleTTL replies -1 both for keys without a deadline and for missing keys.
func (h *CommandHandler) handleTTL(args []resp.Message) resp.Message {
	key, ok := bulkArg(args, 0)
	if !ok {
		return resp.ErrorValue("TTL requires a key")
	}
	ttl := h.store.TTL(key)
	if ttl < 0 {
		ttl = -1
	}
	return resp.IntegerValue(ttl)
}

// handleKeys ignores any pattern argument and returns every live key.
func (h *CommandHandler) handleKeys() resp.Message {
	keys := h.store.Keys()
	items := make([]resp.Message, len(keys))
	for i, k := range keys {
		items[i] = resp.BulkStringValue(k)
	}
	return resp.ArrayValue(items...)
}

// ============================================================
// Argument Helpers
// ============================================================

// bulkArg returns args[i] as a string if it exists and is a bulk string.
func bulkArg(args []resp.Message, i int) (string, bool) {
	if i >= len(args) || args[i].Kind != resp.KindBulkString {
		return "", false
	}
	return string(args[i].Str), true
}

// secondsArg parses args[i] as a non-negative decimal integer.
func secondsArg(args []resp.Message, i int) (int64, bool) {
	raw := args[i].Str
	if len(raw) == 0 || bytes.IndexByte(raw, '+') == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func boolReply(b bool) resp.Message {
	if b {
		return resp.IntegerValue(1)
	}
	return resp.IntegerValue(0)
}
