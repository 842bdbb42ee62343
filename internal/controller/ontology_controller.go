package controller

import (
	"fmt"
	"path/filepath"

	"ontology-chat/internal/pkg/serverutils"
	"ontology-chat/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IOntologyController interface {
	RegisterRoutes(r fiber.Router)
	UploadPdf(ctx *fiber.Ctx) error
}

type uploadPdfRequest struct {
	SessionId string `form:"session_id" validate:"required,uuid4"`
}

type ontologyController struct {
	ontologyService service.IOntologyService
	cookie          *serverutils.SessionCookie
	uploadDir       string
	maxSizeBytes    int64
}

func NewOntologyController(
	ontologyService service.IOntologyService,
	cookie *serverutils.SessionCookie,
	uploadDir string,
	maxSizeMB int,
) IOntologyController {
	return &ontologyController{
		ontologyService: ontologyService,
		cookie:          cookie,
		uploadDir:       uploadDir,
		maxSizeBytes:    int64(maxSizeMB) * 1024 * 1024,
	}
}

func (c *ontologyController) RegisterRoutes(r fiber.Router) {
	r.Post("upload-pdf", c.UploadPdf)
}

// UploadPdf accepts the multipart upload and enqueues background processing.
// The response only acknowledges receipt; build progress arrives on the push
// channel.
func (c *ontologyController) UploadPdf(ctx *fiber.Ctx) error {
	req := uploadPdfRequest{SessionId: ctx.FormValue("session_id")}
	if req.SessionId == "" {
		req.SessionId = c.cookie.Read(ctx)
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	fileHeader, err := ctx.FormFile("pdf_file")
	if err != nil {
		return serverutils.NewBadRequest("multipart field 'pdf_file' is required")
	}
	if fileHeader.Size > c.maxSizeBytes {
		return serverutils.NewBadRequest(fmt.Sprintf("file exceeds %d MB limit", c.maxSizeBytes/(1024*1024)))
	}

	// Prefix with a fresh id so concurrent uploads never collide on disk.
	savedName := uuid.NewString() + "_" + filepath.Base(fileHeader.Filename)
	savedPath := filepath.Join(c.uploadDir, savedName)
	if err := ctx.SaveFile(fileHeader, savedPath); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}

	res, err := c.ontologyService.Enqueue(ctx.Context(), req.SessionId, savedPath, fileHeader.Filename)
	if err != nil {
		return err
	}

	// A cookie-less caller that supplied session_id explicitly gets bound to
	// it for subsequent requests.
	if c.cookie.Read(ctx) != req.SessionId {
		if err := c.cookie.Write(ctx, req.SessionId); err != nil {
			return err
		}
	}
	return ctx.Status(fiber.StatusAccepted).JSON(res)
}
