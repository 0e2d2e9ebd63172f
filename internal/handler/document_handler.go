package handler

import (
	"io"
	"net/http"
	"strconv"

	"buildfund/internal/middleware"
	"buildfund/internal/model"
	"buildfund/internal/service"
	"buildfund/pkg/pagination"
	"buildfund/pkg/response"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	documentService service.DocumentService
}

func NewDocumentHandler(documentService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func (h *DocumentHandler) RegisterRoutes(router *gin.RouterGroup) {
	documents := router.Group("/documents")
	{
		documents.POST("", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleConsultant), h.UploadDocument)
		documents.GET("", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleConsultant), h.ListMyDocuments)
		documents.GET("/:id", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.GetDocumentMeta)
		documents.GET("/:id/download", middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleAdmin), h.DownloadDocument)
	}

	router.GET("/document-types",
		middleware.RequireRole(model.RoleBorrower, model.RoleLender, model.RoleConsultant, model.RoleAdmin), h.ListDocumentTypes)
}

// UploadDocument handles POST /documents (multipart form)
// @Summary      Upload document
// @Description  Uploads a file which is encrypted at rest. The multipart form accepts file, plus optional document_type_id.
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file              formData  file    true   "File content"
// @Param        document_type_id  formData  int     false  "Document type id"
// @Success      201               {object}  response.Response{data=service.DocumentResponse}
// @Failure      400               {object}  response.Response
// @Router       /documents [post]
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing file: "+err.Error()))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to open file"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to read file"))
		return
	}

	req := service.UploadDocumentRequest{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	}
	if raw := c.PostForm("document_type_id"); raw != "" {
		if id, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			req.DocumentTypeID = &id
		}
	}

	document, err := h.documentService.Upload(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, document))
}

// ListMyDocuments handles GET /documents
// @Summary      List own documents
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"
// @Param        limit  query     int  false  "Items per page"
// @Success      200    {object}  response.Response{data=object}
// @Router       /documents [get]
func (h *DocumentHandler) ListMyDocuments(c *gin.Context) {
	p := pagination.Parse(c)

	documents, total, err := h.documentService.ListByOwner(c.Request.Context(), c.GetString("userID"), p.Page, p.Limit)
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"documents":  documents,
		"pagination": pagination.NewMeta(p, total),
	}))
}

// GetDocumentMeta handles GET /documents/:id
// @Summary      Get document metadata
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  response.Response{data=service.DocumentResponse}
// @Failure      404  {object}  response.Response
// @Router       /documents/{id} [get]
func (h *DocumentHandler) GetDocumentMeta(c *gin.Context) {
	document, err := h.documentService.GetMeta(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, document))
}

// DownloadDocument handles GET /documents/:id/download
// @Summary      Download document
// @Description  Decrypts and streams the file content
// @Tags         documents
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {file}    binary
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /documents/{id}/download [get]
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	content, err := h.documentService.Download(c.Request.Context(), c.Param("id"), c.GetString("userID"), c.GetString("userRole"))
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	contentType := content.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+content.FileName+`"`)
	c.Data(http.StatusOK, contentType, content.Data)
}

// ListDocumentTypes handles GET /document-types
// @Summary      List document types
// @Tags         documents
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]service.DocumentTypeResponse}
// @Router       /document-types [get]
func (h *DocumentHandler) ListDocumentTypes(c *gin.Context) {
	types, err := h.documentService.ListDocumentTypes(c.Request.Context())
	if err != nil {
		c.JSON(response.FromError(err))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, types))
}
