package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dappsuite/ledger"
	"dappsuite/program"
	"dappsuite/sdk"
)

// -----------------------------------------------------------------------------
// HTTP surface
// -----------------------------------------------------------------------------
//
// Every mutating endpoint takes a signed envelope: the raw payload bytes are
// what the client signed, so verification happens before the payload is even
// parsed. Read endpoints are plain GETs, unauthenticated.

// Server exposes the runtime over HTTP.
type Server struct {
	rt      *program.Runtime
	cfg     Config
	log     *slog.Logger
	metrics *Metrics
	mux     *http.ServeMux
}

// NewServer wires routes over the runtime. reg may be nil to skip metrics.
func NewServer(rt *program.Runtime, cfg Config, logger *slog.Logger, reg *prometheus.Registry) *Server {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s := &Server{
		rt:  rt,
		cfg: cfg,
		log: logger,
		mux: http.NewServeMux(),
	}
	if reg != nil {
		s.metrics = NewMetrics(reg)
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	s.routes()
	return s
}

// Handler returns the root handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// txEnvelope is the wire form of every mutating request. Signature covers
// the raw payload bytes, both signer and signature in base58.
type txEnvelope struct {
	Signer    string          `json:"signer"`
	Signature string          `json:"signature"`
	Payload   json.RawMessage `json:"payload"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: msg}})
}

// statusFor maps a program or ledger failure onto an HTTP status.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound, "AccountNotFound"
	case errors.Is(err, ledger.ErrAccountExists):
		return http.StatusConflict, "AccountExists"
	case errors.Is(err, ledger.ErrAddressRetired):
		return http.StatusConflict, "AddressRetired"
	case errors.Is(err, ledger.ErrStaleAccount):
		return http.StatusConflict, "StaleAccount"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "InsufficientFunds"
	}
	var perr *program.Error
	if errors.As(err, &perr) {
		switch perr.Code {
		case "Unauthorized":
			return http.StatusForbidden, perr.Code
		case "CampaignNotFound", "PollDoesNotExist", "UserNotInitialized", "NotInitialized", "CandidateNotRegistered":
			return http.StatusNotFound, perr.Code
		case "AlreadyInitialized", "CandidateAlreadyRegistered", "VoterAlreadyVoted",
			"MessageTimestampTaken", "CampaignHasDonations", "CampaignGoalActualized",
			"CampaignStillActive":
			return http.StatusConflict, perr.Code
		case "InsufficientFund":
			return http.StatusPaymentRequired, perr.Code
		default:
			return http.StatusBadRequest, perr.Code
		}
	}
	return http.StatusInternalServerError, "Internal"
}

// txFunc runs one already-authenticated transition.
type txFunc func(ctx program.Context, payload json.RawMessage) (program.Receipt, error)

// tx wraps a transition in envelope decoding, signature verification, error
// mapping and metrics.
func (s *Server) tx(op string, fn txFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		outcome := "ok"
		defer func() {
			s.metrics.observe(op, outcome, time.Since(started).Seconds())
		}()

		var env txEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			outcome = "BadEnvelope"
			writeError(w, http.StatusBadRequest, "BadEnvelope", "request body is not a valid envelope")
			return
		}
		signer, err := sdk.AddressFromString(env.Signer)
		if err != nil {
			outcome = "BadSigner"
			writeError(w, http.StatusBadRequest, "BadSigner", "signer is not a valid identity")
			return
		}
		sig, err := base58.Decode(env.Signature)
		if err != nil || !sdk.Verify(signer, env.Payload, sig) {
			outcome = "BadSignature"
			writeError(w, http.StatusUnauthorized, "BadSignature", "signature does not verify against the payload")
			return
		}

		rcpt, err := fn(program.Context{Signer: signer}, env.Payload)
		if err != nil {
			status, code := statusFor(err)
			outcome = code
			s.log.Warn("tx rejected", "op", op, "code", code, "err", err)
			writeError(w, status, code, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]program.Receipt{"receipt": rcpt})
	}
}

// decodeTx parses a payload into args, surfacing one stable code for
// malformed JSON.
func decodeTx[T any](payload json.RawMessage) (T, error) {
	var args T
	if err := json.Unmarshal(payload, &args); err != nil {
		return args, errBadPayload
	}
	return args, nil
}

var errBadPayload = program.NewError("BadPayload", "payload is not valid JSON for this operation")

func (s *Server) routes() {
	// notes
	s.mux.HandleFunc("POST /v1/notes/create", s.tx("note_create", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.CreateNoteArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.CreateNote(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/notes/update", s.tx("note_update", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.UpdateNoteArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.UpdateNote(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/notes/delete", s.tx("note_delete", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.DeleteNoteArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.DeleteNote(ctx, args)
	}))
	s.mux.HandleFunc("GET /v1/notes/{author}", s.list(func(r *http.Request) (any, error) {
		author, err := pathAddress(r, "author")
		if err != nil {
			return nil, err
		}
		return s.rt.ListNotes(author)
	}))
	s.mux.HandleFunc("GET /v1/notes/{author}/{title}", s.list(func(r *http.Request) (any, error) {
		author, err := pathAddress(r, "author")
		if err != nil {
			return nil, err
		}
		return s.rt.GetNote(author, r.PathValue("title"))
	}))

	// tasks
	s.mux.HandleFunc("POST /v1/tasks/create", s.tx("task_create", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.CreateTaskArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.CreateTask(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/tasks/toggle", s.tx("task_toggle", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		ref, err := decodeTx[program.TaskRef](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.ToggleTask(ctx, ref)
	}))
	s.mux.HandleFunc("POST /v1/tasks/rename", s.tx("task_rename", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.RenameTaskArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.RenameTask(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/tasks/delete", s.tx("task_delete", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		ref, err := decodeTx[program.TaskRef](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.DeleteTask(ctx, ref)
	}))
	s.mux.HandleFunc("GET /v1/tasks/{author}", s.list(func(r *http.Request) (any, error) {
		author, err := pathAddress(r, "author")
		if err != nil {
			return nil, err
		}
		return s.rt.ListTasks(author)
	}))
	s.mux.HandleFunc("GET /v1/tasks/{author}/{title}", s.list(func(r *http.Request) (any, error) {
		author, err := pathAddress(r, "author")
		if err != nil {
			return nil, err
		}
		return s.rt.GetTask(author, r.PathValue("title"))
	}))

	// social
	s.mux.HandleFunc("POST /v1/users/init", s.tx("user_init", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.InitUserArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.InitUser(ctx, args)
	}))
	s.mux.HandleFunc("GET /v1/users/{authority}", s.list(func(r *http.Request) (any, error) {
		authority, err := pathAddress(r, "authority")
		if err != nil {
			return nil, err
		}
		return s.rt.GetUser(authority)
	}))
	s.mux.HandleFunc("POST /v1/posts/create", s.tx("post_create", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.CreatePostArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.CreatePost(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/posts/update", s.tx("post_update", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.UpdatePostArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.UpdatePost(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/posts/delete", s.tx("post_delete", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.DeletePostArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.DeletePost(ctx, args)
	}))
	s.mux.HandleFunc("GET /v1/posts/{authority}", s.list(func(r *http.Request) (any, error) {
		authority, err := pathAddress(r, "authority")
		if err != nil {
			return nil, err
		}
		return s.rt.ListPosts(authority)
	}))

	// crowdfunding
	s.mux.HandleFunc("POST /v1/crowdfund/init", s.tx("crowdfund_init", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		return s.rt.InitCrowdfund(ctx)
	}))
	s.mux.HandleFunc("POST /v1/campaigns/create", s.tx("campaign_create", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.CreateCampaignArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.CreateCampaign(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/campaigns/donate", s.tx("campaign_donate", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.DonateArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.Donate(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/campaigns/withdraw", s.tx("campaign_withdraw", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.WithdrawArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.Withdraw(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/campaigns/delete", s.tx("campaign_delete", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.DeleteCampaignArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.DeleteCampaign(ctx, args)
	}))
	s.mux.HandleFunc("GET /v1/campaigns", s.list(func(r *http.Request) (any, error) {
		return s.rt.ListCampaigns()
	}))
	s.mux.HandleFunc("GET /v1/campaigns/{cid}", s.list(func(r *http.Request) (any, error) {
		cid, err := pathU64(r, "cid")
		if err != nil {
			return nil, err
		}
		return s.rt.GetCampaign(cid)
	}))
	s.mux.HandleFunc("GET /v1/donations/{donor}", s.list(func(r *http.Request) (any, error) {
		donor, err := pathAddress(r, "donor")
		if err != nil {
			return nil, err
		}
		return s.rt.ListDonations(donor)
	}))

	// voting
	s.mux.HandleFunc("POST /v1/voting/init", s.tx("voting_init", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		return s.rt.InitVoting(ctx)
	}))
	s.mux.HandleFunc("POST /v1/polls/create", s.tx("poll_create", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.CreatePollArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.CreatePoll(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/candidates/register", s.tx("candidate_register", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.RegisterCandidateArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.RegisterCandidate(ctx, args)
	}))
	s.mux.HandleFunc("POST /v1/votes", s.tx("vote", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.VoteArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.Vote(ctx, args)
	}))
	s.mux.HandleFunc("GET /v1/polls", s.list(func(r *http.Request) (any, error) {
		return s.rt.ListPolls()
	}))
	s.mux.HandleFunc("GET /v1/polls/{id}", s.list(func(r *http.Request) (any, error) {
		id, err := pathU64(r, "id")
		if err != nil {
			return nil, err
		}
		return s.rt.GetPoll(id)
	}))
	s.mux.HandleFunc("GET /v1/polls/{id}/candidates", s.list(func(r *http.Request) (any, error) {
		id, err := pathU64(r, "id")
		if err != nil {
			return nil, err
		}
		return s.rt.ListCandidates(id)
	}))

	// chat
	s.mux.HandleFunc("POST /v1/messages/send", s.tx("message_send", func(ctx program.Context, p json.RawMessage) (program.Receipt, error) {
		args, err := decodeTx[program.SendMessageArgs](p)
		if err != nil {
			return program.Receipt{}, err
		}
		return s.rt.SendMessage(ctx, args)
	}))
	s.mux.HandleFunc("GET /v1/threads/{a}/{b}", s.list(func(r *http.Request) (any, error) {
		a, err := pathAddress(r, "a")
		if err != nil {
			return nil, err
		}
		b, err := pathAddress(r, "b")
		if err != nil {
			return nil, err
		}
		return s.rt.GetThread(a, b)
	}))
	s.mux.HandleFunc("GET /v1/threads/{a}/{b}/messages", s.list(func(r *http.Request) (any, error) {
		a, err := pathAddress(r, "a")
		if err != nil {
			return nil, err
		}
		b, err := pathAddress(r, "b")
		if err != nil {
			return nil, err
		}
		return s.rt.ListMessages(a, b)
	}))

	// ledger inspection and faucet
	s.mux.HandleFunc("GET /v1/accounts/{address}", s.list(func(r *http.Request) (any, error) {
		addr, err := pathAddress(r, "address")
		if err != nil {
			return nil, err
		}
		return s.rt.Store().Read(addr)
	}))
	s.mux.HandleFunc("GET /v1/balances/{address}", s.list(func(r *http.Request) (any, error) {
		addr, err := pathAddress(r, "address")
		if err != nil {
			return nil, err
		}
		bal, err := s.rt.Store().Balance(addr)
		if err != nil {
			return nil, err
		}
		return map[string]ledger.Lamports{"balance": bal}, nil
	}))
	s.mux.HandleFunc("POST /v1/airdrop", s.airdrop)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// list wraps a read endpoint with error mapping.
func (s *Server) list(fn func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fn(r)
		if err != nil {
			status, codeName := statusFor(err)
			writeError(w, status, codeName, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func pathAddress(r *http.Request, key string) (sdk.Address, error) {
	addr, err := sdk.AddressFromString(r.PathValue(key))
	if err != nil {
		return sdk.ZeroAddress, errBadAddress
	}
	return addr, nil
}

func pathU64(r *http.Request, key string) (uint64, error) {
	n, err := strconv.ParseUint(r.PathValue(key), 10, 64)
	if err != nil {
		return 0, errBadID
	}
	return n, nil
}

var (
	errBadAddress = program.NewError("BadAddress", "path segment is not a valid base58 identity")
	errBadID      = program.NewError("BadID", "path segment is not a valid numeric id")
)

// airdrop is the development faucet. It is unsigned on purpose: it exists so
// fresh identities can fund their first bonds.
func (s *Server) airdrop(w http.ResponseWriter, r *http.Request) {
	if s.cfg.FaucetAmount == 0 {
		writeError(w, http.StatusForbidden, "FaucetDisabled", "the faucet is disabled")
		return
	}
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BadPayload", "payload is not valid JSON")
		return
	}
	addr, err := sdk.AddressFromString(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BadAddress", "address is not a valid base58 identity")
		return
	}
	if err := s.rt.Store().Credit(addr, ledger.Lamports(s.cfg.FaucetAmount)); err != nil {
		status, codeName := statusFor(err)
		writeError(w, status, codeName, err.Error())
		return
	}
	s.log.Info("airdrop", "to", addr.String(), "amount", s.cfg.FaucetAmount)
	bal, _ := s.rt.Store().Balance(addr)
	writeJSON(w, http.StatusOK, map[string]ledger.Lamports{"balance": bal})
}
