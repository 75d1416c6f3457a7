package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
)

// ProductMediaHandler handles the product gallery of the back office
type ProductMediaHandler struct {
	BaseHandler
	mediaService *catalogapp.MediaService
}

// NewProductMediaHandler creates a new ProductMediaHandler
func NewProductMediaHandler(mediaService *catalogapp.MediaService) *ProductMediaHandler {
	return &ProductMediaHandler{
		mediaService: mediaService,
	}
}

// InitiateUpload godoc
//
//	@Summary		Initiate a media upload
//	@Description	Creates a pending media record and returns a presigned upload URL
//	@Tags			admin-products
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string							true	"Product ID"
//	@Param			request		body		catalogapp.InitiateUploadRequest	true	"Upload initiation request"
//	@Success		201			{object}	dto.Response{data=catalogapp.InitiateUploadResponse}
//	@Failure		404			{object}	dto.Response{error=dto.ErrorInfo}	"Product not found"
//	@Failure		413			{object}	dto.Response{error=dto.ErrorInfo}
//	@Failure		415			{object}	dto.Response{error=dto.ErrorInfo}
//	@Security		BearerAuth
//	@Router			/admin/products/{id}/media [post]
func (h *ProductMediaHandler) InitiateUpload(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.InitiateUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.mediaService.InitiateUpload(c.Request.Context(), productID, req, optionalUserID(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// ConfirmUpload godoc
//
//	@Summary		Confirm a media upload
//	@Description	Activates the media once the object exists in storage
//	@Tags			admin-products
//	@Produce		json
//	@Param			id			path		string	true	"Product ID"
//	@Param			mediaId		path		string	true	"Media ID"
//	@Success		200			{object}	dto.Response{data=catalogapp.MediaResponse}
//	@Security		BearerAuth
//	@Router			/admin/products/{id}/media/{mediaId}/confirm [post]
func (h *ProductMediaHandler) ConfirmUpload(c *gin.Context) {
	productID, mediaID, ok := h.ids(c)
	if !ok {
		return
	}

	media, err := h.mediaService.ConfirmUpload(c.Request.Context(), productID, mediaID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, media)
}

// List returns every media of a product, pending ones included
func (h *ProductMediaHandler) List(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	media, err := h.mediaService.List(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, media)
}

// Update changes alt text or makes the media primary
func (h *ProductMediaHandler) Update(c *gin.Context) {
	productID, mediaID, ok := h.ids(c)
	if !ok {
		return
	}
	var req catalogapp.UpdateMediaRequest
	if !h.bindJSON(c, &req) {
		return
	}

	media, err := h.mediaService.Update(c.Request.Context(), productID, mediaID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, media)
}

// Reorder sets the gallery order
func (h *ProductMediaHandler) Reorder(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req catalogapp.ReorderMediaRequest
	if !h.bindJSON(c, &req) {
		return
	}

	media, err := h.mediaService.Reorder(c.Request.Context(), productID, req.MediaIDs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, media)
}

// Delete removes media from the gallery and from storage
func (h *ProductMediaHandler) Delete(c *gin.Context) {
	productID, mediaID, ok := h.ids(c)
	if !ok {
		return
	}
	if err := h.mediaService.Delete(c.Request.Context(), productID, mediaID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *ProductMediaHandler) ids(c *gin.Context) (productID, mediaID uuid.UUID, ok bool) {
	productID, ok = h.uuidParam(c, "id")
	if !ok {
		return
	}
	mediaID, ok = h.uuidParam(c, "mediaId")
	return
}
