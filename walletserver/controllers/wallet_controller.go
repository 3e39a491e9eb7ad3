package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	core "transferledger/core"
	"transferledger/walletserver/services"
)

// ReplicaController translates HTTP requests into core.Replicas and
// core.AccountManager calls and maps sentinel errors onto status codes.
// All invariant-bearing logic lives in core; this layer is glue.
type ReplicaController struct {
	svc *services.ReplicaService
}

func NewReplicaController(svc *services.ReplicaService) *ReplicaController {
	return &ReplicaController{svc: svc}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrWalletNotFound), errors.Is(err, core.ErrNoSuchAccount):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrAccountExists):
		status = http.StatusConflict
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrLowBalance),
		errors.Is(err, core.ErrUnknownSectionKey), errors.Is(err, core.ErrUnsupportedEvent):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrCachedRequestMissing):
		status = http.StatusGone
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (c *ReplicaController) Genesis(w http.ResponseWriter, r *http.Request) {
	var proof core.CreditAgreementProof
	if err := json.NewDecoder(r.Body).Decode(&proof); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ev, err := c.svc.Genesis(proof)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (c *ReplicaController) Validate(w http.ResponseWriter, r *http.Request) {
	var st core.SignedTransfer
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ev, err := c.svc.Validate(st)
	if err != nil {
		writeErr(w, err)
		return
	}
	if ev == nil {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (c *ReplicaController) Register(w http.ResponseWriter, r *http.Request) {
	var proof core.TransferAgreementProof
	if err := json.NewDecoder(r.Body).Decode(&proof); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ev, err := c.svc.Register(proof)
	if err != nil {
		writeErr(w, err)
		return
	}
	if ev == nil {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (c *ReplicaController) Propagate(w http.ResponseWriter, r *http.Request) {
	var proof core.CreditAgreementProof
	if err := json.NewDecoder(r.Body).Decode(&proof); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ev, err := c.svc.Propagate(proof)
	if err != nil {
		writeErr(w, err)
		return
	}
	if ev == nil {
		writeJSON(w, http.StatusAccepted, nil)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (c *ReplicaController) History(w http.ResponseWriter, r *http.Request) {
	id, err := services.WalletIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	events, err := c.svc.History(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (c *ReplicaController) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := services.WalletIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	bal, err := c.svc.Balance(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.Money{"balance": bal})
}

func (c *ReplicaController) Put(w http.ResponseWriter, r *http.Request) {
	var req core.PutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := c.svc.Put(req); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (c *ReplicaController) PutSuccess(w http.ResponseWriter, r *http.Request) {
	var req struct{ MessageID core.MessageID }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := c.svc.PutSuccess(req.MessageID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (c *ReplicaController) PutFailure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MessageID core.MessageID
		Reason    string
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := c.svc.PutFailure(req.MessageID, req.Reason); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (c *ReplicaController) Refresh(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["id"]
	var account core.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := c.svc.Refresh(name, account); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (c *ReplicaController) Churn(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Churn(); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
