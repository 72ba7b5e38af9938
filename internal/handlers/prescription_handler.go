package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"pharmacy_backend/internal/middleware"
	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxPrescriptionSize = 5 << 20

var prescriptionExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type PrescriptionHandler struct {
	prescriptionService services.PrescriptionService
	mediaRoot           string
	logger              *zap.Logger
}

// NewPrescriptionHandler stores uploads under mediaRoot/prescriptions.
func NewPrescriptionHandler(prescriptionService services.PrescriptionService, mediaRoot string, logger *zap.Logger) *PrescriptionHandler {
	return &PrescriptionHandler{prescriptionService: prescriptionService, mediaRoot: mediaRoot, logger: logger}
}

type uploadPrescriptionRequest struct {
	ContactNumber string `form:"contact_number" binding:"omitempty,pkmobile"`
	Notes         string `form:"notes"`
	BranchID      *uint  `form:"branch_id"`
}

type reviewPrescriptionRequest struct {
	Status        string `json:"status" binding:"required,oneof=Approved Rejected"`
	AdminFeedback string `json:"admin_feedback"`
}

func (h *PrescriptionHandler) Upload(c *gin.Context) {
	var req uploadPrescriptionRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrMissingPrescription.Error()})
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !prescriptionExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prescription must be a JPEG, PNG or WebP image"})
		return
	}
	if file.Size > maxPrescriptionSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prescription image is larger than 5 MB"})
		return
	}

	rel := filepath.Join("prescriptions", uuid.NewString()+ext)
	dst := filepath.Join(h.mediaRoot, rel)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.logger.Error("Failed to save prescription image", zap.String("path", dst), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	prescription, err := h.prescriptionService.Upload(c.Request.Context(), middleware.CurrentUser(c), services.UploadPrescriptionInput{
		Image:         filepath.ToSlash(rel),
		ContactNumber: req.ContactNumber,
		Notes:         req.Notes,
		BranchID:      req.BranchID,
	})
	if err != nil {
		if rmErr := os.Remove(dst); rmErr != nil {
			h.logger.Warn("Failed to remove orphaned upload", zap.String("path", dst), zap.Error(rmErr))
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, prescription)
}

func (h *PrescriptionHandler) List(c *gin.Context) {
	prescriptions, err := h.prescriptionService.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"prescriptions": prescriptions, "count": len(prescriptions)})
}

func (h *PrescriptionHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "prescription")
	if !ok {
		return
	}

	prescription, err := h.prescriptionService.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, prescription)
}

// Image streams the stored file to the owner or to staff.
func (h *PrescriptionHandler) Image(c *gin.Context) {
	id, ok := parseID(c, "prescription")
	if !ok {
		return
	}

	prescription, err := h.prescriptionService.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.File(filepath.Join(h.mediaRoot, filepath.FromSlash(prescription.Image)))
}

func (h *PrescriptionHandler) Review(c *gin.Context) {
	id, ok := parseID(c, "prescription")
	if !ok {
		return
	}

	var req reviewPrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prescription, err := h.prescriptionService.Review(
		c.Request.Context(),
		middleware.CurrentUser(c),
		id,
		models.PrescriptionStatus(req.Status),
		req.AdminFeedback,
	)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, prescription)
}
