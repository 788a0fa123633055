package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/starnotary"
	"github.com/layer-3/starnotary/core"
	"github.com/layer-3/starnotary/service"
)

// DefaultMaxStoryBytes caps the plain-text story of a registration
const DefaultMaxStoryBytes = 500

// NotaryHandlers contains HTTP handlers for the notary endpoints
type NotaryHandlers struct {
	registry *service.SessionRegistry
	verifier *service.AuthenticationVerifier
	stars    *service.StarService

	maxStoryBytes int
	logger        *slog.Logger
}

// NewNotaryHandlers creates new notary handlers
func NewNotaryHandlers(
	registry *service.SessionRegistry,
	verifier *service.AuthenticationVerifier,
	stars *service.StarService,
	maxStoryBytes int,
	logger *slog.Logger,
) *NotaryHandlers {
	if maxStoryBytes <= 0 {
		maxStoryBytes = DefaultMaxStoryBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NotaryHandlers{
		registry:      registry,
		verifier:      verifier,
		stars:         stars,
		maxStoryBytes: maxStoryBytes,
		logger:        logger,
	}
}

// RequestValidation issues an ownership challenge for an address
func (h *NotaryHandlers) RequestValidation(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req, err := starnotary.ParseSessionRequest(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session, err := h.registry.RequestSession(c.Request.Context(), req.Address)
	if err != nil {
		h.writeError(c, err, "Failed to create session")
		return
	}

	c.JSON(http.StatusOK, starnotary.NewSessionResponse(session))
}

// ValidateSignature checks the signed challenge
func (h *NotaryHandlers) ValidateSignature(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req, err := starnotary.ParseAuthenticationRequest(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	result, err := h.verifier.Authenticate(c.Request.Context(), req.Address, req.Signature)
	if err != nil {
		// the negative result still tells the client which challenge was checked
		if errors.Is(err, core.ErrSignatureInvalid) && result != nil {
			c.JSON(http.StatusUnauthorized, starnotary.NewAuthenticationResponse(result))
			return
		}
		h.writeError(c, err, "Authentication failed")
		return
	}

	c.JSON(http.StatusOK, starnotary.NewAuthenticationResponse(result))
}

// RegisterStar appends a star for an authenticated address
func (h *NotaryHandlers) RegisterStar(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req, err := starnotary.ParseRegisterStarRequest(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if len(req.Star.Story) > h.maxStoryBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Story exceeds %d bytes", h.maxStoryBytes)})
		return
	}

	block, err := h.stars.RegisterStar(c.Request.Context(), req.EncodedRecord())
	if err != nil {
		h.writeError(c, err, "Failed to register star")
		return
	}

	h.writeStar(c, block)
}

// GetBlock returns the block at a height
func (h *NotaryHandlers) GetBlock(c *gin.Context) {
	height, err := strconv.ParseUint(c.Param("height"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid block height"})
		return
	}

	block, err := h.stars.StarByHeight(c.Request.Context(), height)
	if err != nil {
		h.writeError(c, err, "Failed to read block")
		return
	}

	h.writeStar(c, block)
}

// GetStars looks stars up by "hash:<hash>" or "address:<address>"
func (h *NotaryHandlers) GetStars(c *gin.Context) {
	kind, value, ok := strings.Cut(c.Param("selector"), ":")
	if !ok || value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected hash:<hash> or address:<address>"})
		return
	}

	switch kind {
	case "hash":
		block, err := h.stars.StarByHash(c.Request.Context(), value)
		if err != nil {
			h.writeError(c, err, "Failed to read star")
			return
		}
		h.writeStar(c, block)

	case "address":
		blocks, err := h.stars.StarsByAddress(c.Request.Context(), value)
		if err != nil {
			h.writeError(c, err, "Failed to read stars")
			return
		}
		stars, err := starnotary.NewMultiStarResponse(blocks)
		if err != nil {
			h.writeError(c, err, "Failed to read stars")
			return
		}
		c.JSON(http.StatusOK, stars)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected hash:<hash> or address:<address>"})
	}
}

// Health reports liveness
func (h *NotaryHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *NotaryHandlers) writeStar(c *gin.Context, block *core.Block) {
	star, err := starnotary.NewSingleStarResponse(*block)
	if err != nil {
		h.writeError(c, err, "Failed to read star")
		return
	}
	c.JSON(http.StatusOK, star)
}

// writeError maps domain errors to status codes
func (h *NotaryHandlers) writeError(c *gin.Context, err error, fallback string) {
	statusCode := http.StatusInternalServerError
	errorMsg := fallback

	switch {
	case errors.Is(err, core.ErrInvalidAddress):
		statusCode = http.StatusBadRequest
		errorMsg = "Invalid address"
	case errors.Is(err, core.ErrSessionNotFound):
		statusCode = http.StatusNotFound
		errorMsg = "No validation request for address"
	case errors.Is(err, core.ErrSessionExpired):
		statusCode = http.StatusGone
		errorMsg = "Validation window expired"
	case errors.Is(err, core.ErrSignatureInvalid):
		statusCode = http.StatusUnauthorized
		errorMsg = "Invalid signature"
	case errors.Is(err, core.ErrNotAuthenticated), errors.Is(err, core.ErrInvalidGrant):
		statusCode = http.StatusForbidden
		errorMsg = "Address is not authenticated"
	case errors.Is(err, core.ErrGrantConsumed):
		statusCode = http.StatusConflict
		errorMsg = "Registration grant already used"
	case errors.Is(err, core.ErrBlockNotFound):
		statusCode = http.StatusNotFound
		errorMsg = "Block not found"
	case errors.Is(err, core.ErrDecode):
		h.logger.Error("ledger holds a malformed star", "error", err)
		errorMsg = "Stored star is corrupt"
	default:
		h.logger.Error(fallback, "error", err)
	}

	_ = c.Error(err)
	c.JSON(statusCode, gin.H{"error": errorMsg})
}
