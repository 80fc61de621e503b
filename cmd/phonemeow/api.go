package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"go.mau.fi/phonemeow/pkg/phonemeow"
	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

// API exposes the engine over HTTP. It also provides the serialization the
// engine itself does not: sync runs for the account are guarded by a single
// in-flight lock.
type API struct {
	Router *mux.Router

	client  *phonemeow.Client
	log     zerolog.Logger
	metrics *MetricsHandler

	syncLock sync.Mutex
}

func NewAPI(client *phonemeow.Client, log zerolog.Logger, metrics *MetricsHandler) *API {
	api := &API{
		Router:  mux.NewRouter(),
		client:  client,
		log:     log.With().Str("component", "api").Logger(),
		metrics: metrics,
	}
	api.Router.HandleFunc("/v1/contacts", api.GetContacts).Methods(http.MethodGet)
	api.Router.HandleFunc("/v1/contacts/sync", api.SyncContacts).Methods(http.MethodPost)
	api.Router.HandleFunc("/v1/contacts/by-user-hash/{hash}", api.GetContactByUserHash).Methods(http.MethodGet)
	api.Router.HandleFunc("/v1/resolve", api.Resolve).Methods(http.MethodPost)
	api.Router.HandleFunc("/v1/cache", api.ClearCache).Methods(http.MethodDelete)
	return api
}

func jsonResponse(w http.ResponseWriter, status int, response any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (api *API) syncContacts(ctx context.Context, force bool) ([]*types.ContactPair, error) {
	api.syncLock.Lock()
	defer api.syncLock.Unlock()
	pairs, err := api.client.LoadContacts(ctx, force)
	if api.metrics != nil {
		api.metrics.TrackSync(err == nil)
	}
	return pairs, err
}

func (api *API) contactsResponse(w http.ResponseWriter, force bool, r *http.Request) {
	pairs, err := api.syncContacts(r.Context(), force)
	if errors.Is(err, phonemeow.ErrPermissionDenied) {
		jsonResponse(w, http.StatusForbidden, errorResponse{Error: err.Error()})
		return
	} else if err != nil && pairs == nil {
		api.log.Err(err).Msg("Failed to load contacts")
		jsonResponse(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	} else if err != nil {
		// Partial success: return what we have, but flag the failures.
		api.log.Warn().Err(err).Msg("Contact load partially failed")
	}
	jsonResponse(w, http.StatusOK, map[string]any{"contacts": pairs})
}

func (api *API) GetContacts(w http.ResponseWriter, r *http.Request) {
	api.contactsResponse(w, false, r)
}

func (api *API) SyncContacts(w http.ResponseWriter, r *http.Request) {
	api.contactsResponse(w, true, r)
}

func (api *API) GetContactByUserHash(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	pair := api.client.LookupContact(hash)
	if pair == nil {
		jsonResponse(w, http.StatusNotFound, errorResponse{Error: "no contact for user hash"})
		return
	}
	jsonResponse(w, http.StatusOK, pair)
}

type resolveRequest struct {
	// Exactly one of Number and ContactHash selects the entry point.
	Number      string `json:"number,omitempty"`
	ContactHash string `json:"contact_hash,omitempty"`
	// Narrowing choices applied before resolving, for the second round
	// trip after a select_number or select_calling_code response.
	ChosenNumber string     `json:"chosen_number,omitempty"`
	ChosenUser   *uuid.UUID `json:"chosen_user,omitempty"`
}

type resolveResponse struct {
	State string             `json:"state"`
	Pair  *types.ContactPair `json:"pair,omitempty"`
	User  *types.User        `json:"user,omitempty"`
	Error string             `json:"error,omitempty"`
}

func (api *API) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	ctx := r.Context()
	var result phonemeow.FlowResult
	switch {
	case req.Number != "" && req.ContactHash == "":
		result = api.client.ResolveNumber(ctx, req.Number)
	case req.ContactHash != "":
		pair := api.client.Cache.GetByContactHash(req.ContactHash)
		if pair == nil {
			jsonResponse(w, http.StatusNotFound, errorResponse{Error: "unknown contact hash"})
			return
		}
		result = api.resolveNarrowed(ctx, pair, &req)
	default:
		jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "either number or contact_hash is required"})
		return
	}
	if api.metrics != nil {
		api.metrics.TrackResolve(result)
	}
	jsonResponse(w, http.StatusOK, renderFlowResult(result))
}

func (api *API) resolveNarrowed(ctx context.Context, pair *types.ContactPair, req *resolveRequest) phonemeow.FlowResult {
	if req.ChosenNumber != "" {
		for _, numberPair := range pair.NumberPairs {
			if numberPair.Number == phonemeow.Digits(req.ChosenNumber) {
				if req.ChosenUser != nil {
					return api.narrowToUserIn(ctx, pair, numberPair, *req.ChosenUser)
				}
				return api.client.NarrowToNumberPair(ctx, pair, numberPair)
			}
		}
		return phonemeow.DisplayError{Err: phonemeow.ErrNoMatchingUsers}
	}
	if req.ChosenUser != nil && len(pair.NumberPairs) == 1 {
		return api.narrowToUserIn(ctx, pair, pair.NumberPairs[0], *req.ChosenUser)
	}
	return api.client.Resolve(ctx, pair)
}

func (api *API) narrowToUserIn(ctx context.Context, pair *types.ContactPair, numberPair *types.NumberPair, chosen uuid.UUID) phonemeow.FlowResult {
	for _, user := range numberPair.Users {
		if user.Identifier == chosen {
			narrowed := &types.ContactPair{
				Contact:     pair.Contact,
				NumberPairs: []*types.NumberPair{numberPair},
			}
			return api.client.NarrowToUser(ctx, narrowed, user)
		}
	}
	return phonemeow.DisplayError{Err: phonemeow.ErrNoMatchingUsers}
}

func renderFlowResult(result phonemeow.FlowResult) resolveResponse {
	switch typed := result.(type) {
	case phonemeow.SelectNumber:
		return resolveResponse{State: "select_number", Pair: typed.Pair}
	case phonemeow.SelectCallingCode:
		return resolveResponse{State: "select_calling_code", Pair: typed.Pair}
	case phonemeow.StartConversation:
		return resolveResponse{State: "start_conversation", Pair: typed.Pair, User: &typed.User}
	case phonemeow.DisplayError:
		return resolveResponse{State: "error", Error: typed.Err.Error()}
	default:
		return resolveResponse{State: "error", Error: "unknown flow state"}
	}
}

func (api *API) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := api.client.ClearAll(r.Context()); err != nil {
		api.log.Err(err).Msg("Failed to clear caches")
		jsonResponse(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]bool{"cleared": true})
}
