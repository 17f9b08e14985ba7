package http

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"genesisgraph/internal/domain"
	"genesisgraph/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type verifyAttestationRequest struct {
	Payload       map[string]any     `json:"payload"`
	Attestation   domain.Attestation `json:"attestation"`
	WitnessPolicy string             `json:"witness_policy,omitempty"`
	Persist       bool               `json:"persist,omitempty"`
}

type verifyAttestationResponse struct {
	Receipt        *usecase.AttestationReceipt `json:"receipt"`
	TransparencyOK *bool                       `json:"transparency_ok,omitempty"`
	Trace          []string                    `json:"trace,omitempty"`
	RecordID       string                      `json:"record_id,omitempty"`
}

func (s *Server) handleVerifyAttestation(c *gin.Context) {
	if !s.enforceRateLimit(c, "attestations:verify") {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "unreadable body")
		return
	}

	var cacheKey string
	if s.respCache != nil {
		sum := sha256.Sum256(body)
		cacheKey = hex.EncodeToString(sum[:])
		if cached, ok := s.respCache.Get(cacheKey); ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", cached)
			return
		}
	}

	var req verifyAttestationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.Payload == nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "payload is required")
		return
	}

	receipt, err := s.verifyUC.Execute(c.Request.Context(), req.Attestation, req.Payload)
	if err != nil {
		writeError(c, err)
		return
	}

	out := verifyAttestationResponse{Receipt: receipt}

	if len(req.Attestation.Transparency) > 0 && receipt.Canonical != nil {
		policy := usecase.WitnessPolicy(req.WitnessPolicy)
		ok, trace, err := s.transparencyUC.VerifyMultiWitness(req.Attestation.Transparency, receipt.Canonical, policy)
		if err != nil {
			writeError(c, err)
			return
		}
		out.TransparencyOK = &ok
		out.Trace = trace
	}

	if req.Persist && s.records != nil {
		record := domain.VerificationRecord{
			Signer:         receipt.Signer,
			Mode:           string(receipt.Mode),
			Algorithm:      receipt.Algorithm,
			Outcome:        receipt.Outcome,
			FailedStep:     receipt.FailedStep,
			Message:        receipt.Message,
			SignatureValid: receipt.SignatureValid,
			TransparencyOK: out.TransparencyOK,
		}
		id, err := s.records.Append(c.Request.Context(), record)
		if err != nil {
			s.log.Error("persist verification record", "error", err)
		} else {
			out.RecordID = id
		}
	}

	if s.respCache != nil && !req.Persist {
		if rendered, err := json.Marshal(out); err == nil {
			s.respCache.Put(cacheKey, rendered, s.respCacheTTL)
		}
	}
	c.JSON(http.StatusOK, out)
}

type verifyTransparencyRequest struct {
	Entries  []domain.TransparencyLogEntry `json:"entries"`
	LeafData string                        `json:"leaf_data"`
	Policy   string                        `json:"policy"`
}

type verifyTransparencyResponse struct {
	Verified bool     `json:"verified"`
	Trace    []string `json:"trace,omitempty"`
}

func (s *Server) handleVerifyTransparency(c *gin.Context) {
	if !s.enforceRateLimit(c, "transparency:verify") {
		return
	}
	var req verifyTransparencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	leafData, err := base64.StdEncoding.DecodeString(req.LeafData)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_LEAF_DATA", "leaf_data must be base64")
		return
	}

	ok, trace, err := s.transparencyUC.VerifyMultiWitness(req.Entries, leafData, usecase.WitnessPolicy(req.Policy))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, verifyTransparencyResponse{Verified: ok, Trace: trace})
}

type resolveDIDRequest struct {
	DID         string `json:"did"`
	KeyFragment string `json:"key_fragment,omitempty"`
}

type resolveDIDResponse struct {
	DID       string `json:"did"`
	PublicKey string `json:"public_key"`
	KeyType   string `json:"key_type"`
}

func (s *Server) handleResolveDID(c *gin.Context) {
	if !s.enforceRateLimit(c, "dids:resolve") {
		return
	}
	var req resolveDIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if req.DID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "did is required")
		return
	}

	pubKey, err := s.resolver.Resolve(c.Request.Context(), req.DID, req.KeyFragment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resolveDIDResponse{
		DID:       req.DID,
		PublicKey: base64.StdEncoding.EncodeToString(pubKey),
		KeyType:   "Ed25519",
	})
}

type recordResponse struct {
	ID             string `json:"id"`
	Signer         string `json:"signer,omitempty"`
	Mode           string `json:"mode"`
	Algorithm      string `json:"algorithm,omitempty"`
	Outcome        string `json:"outcome"`
	FailedStep     string `json:"failed_step,omitempty"`
	Message        string `json:"message,omitempty"`
	SignatureValid bool   `json:"signature_valid"`
	TransparencyOK *bool  `json:"transparency_ok,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func (s *Server) handleGetRecord(c *gin.Context) {
	if s.records == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	record, err := s.records.GetByID(c.Request.Context(), c.Param("record_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildRecordResponse(*record))
}

func (s *Server) handleListRecords(c *gin.Context) {
	if s.records == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	signer := c.Query("signer")
	if signer == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "signer query parameter is required")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	records, err := s.records.ListBySigner(c.Request.Context(), signer, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]recordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, buildRecordResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

func buildRecordResponse(r domain.VerificationRecord) recordResponse {
	return recordResponse{
		ID:             r.ID,
		Signer:         r.Signer,
		Mode:           r.Mode,
		Algorithm:      r.Algorithm,
		Outcome:        r.Outcome,
		FailedStep:     r.FailedStep,
		Message:        r.Message,
		SignatureValid: r.SignatureValid,
		TransparencyOK: r.TransparencyOK,
		CreatedAt:      r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, domain.ErrSecurityPolicy):
		status, code = http.StatusForbidden, "SECURITY_POLICY"
	case errors.Is(err, domain.ErrResolution):
		status, code = http.StatusBadGateway, "RESOLUTION_FAILED"
	case errors.Is(err, domain.ErrEncoding):
		status, code = http.StatusBadRequest, "ENCODING_FAILED"
	case errors.Is(err, domain.ErrProofStructure):
		status, code = http.StatusBadRequest, "PROOF_INVALID"
	case errors.Is(err, domain.ErrNotImplemented):
		status, code = http.StatusNotImplemented, "NOT_IMPLEMENTED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
