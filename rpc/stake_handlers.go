package rpc

import (
	"encoding/json"
	"net/http"

	"nftstake/core"
	"nftstake/core/types"
	"nftstake/crypto"
)

func decodeParams(req *RPCRequest, out interface{}) *RPCError {
	if len(req.Params) != 1 {
		return &RPCError{Code: codeInvalidParams, Message: "exactly one parameter object expected"}
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	return nil
}

func writeParamError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	writeError(w, http.StatusBadRequest, id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
}

func (s *Server) decodeHolderAsset(w http.ResponseWriter, req *RPCRequest) ([20]byte, [20]byte, bool) {
	var params HolderAssetParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req.ID, rpcErr)
		return [20]byte{}, [20]byte{}, false
	}
	holder, err := parseAddress("holder", params.Holder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return [20]byte{}, [20]byte{}, false
	}
	asset, err := parseAddress("asset", params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return [20]byte{}, [20]byte{}, false
	}
	return holder, asset, true
}

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	source := clientSource(r, s.cfg.TrustForwardedFor)
	if !s.allowSource(source, s.nowFn()) {
		s.metrics.ObserveThrottle()
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "transaction rate limit exceeded", nil)
		return
	}
	var tx types.Transaction
	if rpcErr := decodeParams(req, &tx); rpcErr != nil {
		writeParamError(w, req.ID, rpcErr)
		return
	}

	receipt, err := s.node.ApplyTransaction(r.Context(), &tx)
	if err != nil {
		kind := core.ErrorKind(err)
		status := http.StatusUnprocessableEntity
		if kind == "Internal" {
			status = http.StatusInternalServerError
		}
		s.logger.Info("transaction rejected",
			"requestid", requestIDFrom(r.Context()),
			"txtype", tx.Type.String(),
			"kind", kind)
		writeError(w, status, req.ID, codeTxRejected, err.Error(), ErrorData{Kind: kind, Receipt: formatReceipt(receipt)})
		return
	}
	writeResult(w, req.ID, formatReceipt(receipt))
}

func (s *Server) handleGetRecord(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	holder, asset, ok := s.decodeHolderAsset(w, req)
	if !ok {
		return
	}
	record, err := s.node.StakeRecord(holder, asset)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatRecord(record))
}

func (s *Server) handleGetStatus(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	holder, asset, ok := s.decodeHolderAsset(w, req)
	if !ok {
		return
	}
	status, err := s.node.Status(holder, asset)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, StatusResult{
		Holder: crypto.Render(holder),
		Asset:  crypto.Render(asset),
		Status: string(status),
	})
}

func (s *Server) handlePreviewRewards(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	holder, asset, ok := s.decodeHolderAsset(w, req)
	if !ok {
		return
	}
	amount, err := s.node.PreviewRewards(holder, asset)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, PreviewResult{
		Holder: crypto.Render(holder),
		Asset:  crypto.Render(asset),
		Amount: amount,
	})
}

func (s *Server) handleGetTokenAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params TokenAccountParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req.ID, rpcErr)
		return
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	mint, err := parseAddress("mint", params.Mint)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := s.node.TokenAccount(owner, mint)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatTokenAccount(account))
}

func (s *Server) handleGetMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params AddressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req.ID, rpcErr)
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	mint, err := s.node.Mint(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatMint(mint))
}

func (s *Server) handleGetRewardBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params RewardBalanceParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req.ID, rpcErr)
		return
	}
	holder, err := parseAddress("holder", params.Holder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	rewardMint, err := parseAddress("rewardMint", params.RewardMint)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.node.RewardBalance(holder, rewardMint)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, BalanceResult{
		Holder:     crypto.Render(holder),
		RewardMint: crypto.Render(rewardMint),
		Balance:    balance.Dec(),
	})
}

func (s *Server) handleGetStakedAssets(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params AddressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req.ID, rpcErr)
		return
	}
	holder, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	assets, err := s.node.StakedAssets(holder)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	result := StakedAssetsResult{Holder: crypto.Render(holder), Assets: make([]string, 0, len(assets))}
	for _, asset := range assets {
		result.Assets = append(result.Assets, crypto.Render(asset))
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params AddressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req.ID, rpcErr)
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := s.node.Account(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, AccountResult{
		Address:  crypto.Render(addr),
		Nonce:    account.Nonce,
		Deposits: account.Deposits,
	})
}

func (s *Server) handleGetNonce(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params AddressParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req.ID, rpcErr)
		return
	}
	addr, err := parseAddress("address", params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	nonce, err := s.node.Nonce(addr)
	if err != nil {
		writeLedgerError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, nonce)
}

func (s *Server) handleGetAuthorities(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	writeResult(w, req.ID, formatAuthorities(s.node.Authorities()))
}
