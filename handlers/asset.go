package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"server/assets"
	"server/imaging"
	"server/models"
	"server/transformer"
	"strconv"

	"github.com/gin-gonic/gin"
)

type AssetListRequest struct {
	Type   string `form:"type" binding:"required"`
	Cursor uint64 `form:"cursor"`
	Limit  int    `form:"limit"`
}

type AssetListData struct {
	Assets  []models.Asset `json:"assets"`
	Cursor  uint64         `json:"cursor,omitempty"`
	HasMore bool           `json:"hasMore"`
}

type AssetFetchRequest struct {
	Format  string `form:"format"`
	Width   uint   `form:"width"`
	Height  uint   `form:"height"`
	Quality int    `form:"quality"`
}

// AssetUpload handles POST /api/assets (multipart: file, type, packSetId)
func AssetUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "missing file field"})
		return
	}
	mimeType := file.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(file.Filename))
	}
	reader, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	defer reader.Close()
	// One byte over the ceiling is enough to reject; don't buffer huge bodies
	data, err := io.ReadAll(io.LimitReader(reader, imaging.MaxInputSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	result, err := Assets.Upload(&assets.UploadRequest{
		Data:      data,
		Type:      c.PostForm("type"),
		Name:      file.Filename,
		MimeType:  mimeType,
		PackSetID: c.PostForm("packSetId"),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DataResponse{
		Success: true,
		Data:    result.Asset,
		Warning: result.TransformWarning,
	})
}

// AssetList handles GET /api/assets?type=&cursor=&limit=
func AssetList(c *gin.Context) {
	r := AssetListRequest{}
	if err := c.ShouldBindQuery(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	page, err := Assets.ListByType(r.Type, r.Cursor, r.Limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	data := AssetListData{Assets: page.Assets, HasMore: page.HasMore}
	if page.HasMore {
		data.Cursor = page.Cursor
	}
	c.JSON(http.StatusOK, DataResponse{Success: true, Data: data})
}

// AssetActive handles GET /api/assets/active/:type
func AssetActive(c *gin.Context) {
	asset, err := Assets.Active(c.Param("type"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DataResponse{Success: true, Data: gin.H{"asset": asset}})
}

// AssetActivate handles PUT /api/assets/:type/:id/activate
func AssetActivate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid asset id"})
		return
	}
	if err = Assets.Activate(id, c.Param("type")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "asset activated"})
}

// AssetDelete handles DELETE /api/assets/:type/:id
func AssetDelete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid asset id"})
		return
	}
	if err = Assets.Delete(id, c.Param("type")); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Message: "asset deleted"})
}

// AssetFetch handles GET /api/assets/:type/:id - the binary read path
func AssetFetch(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid asset id"})
		return
	}
	r := AssetFetchRequest{}
	if err = c.ShouldBindQuery(&r); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	opts := assets.ResolveOptions{
		Format:  r.Format,
		Width:   r.Width,
		Height:  r.Height,
		Quality: r.Quality,
	}
	// S3-backed originals are served straight from the bucket
	if uri, ok := Assets.RedirectURI(id, c.Param("type"), opts); ok {
		c.Redirect(http.StatusFound, uri)
		return
	}
	data, mimeType, err := Assets.Resolve(id, c.Param("type"), opts)
	if err != nil {
		if assets.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, Response{Error: err.Error()})
			return
		}
		if transformer.IsTimeout(err) {
			c.JSON(http.StatusGatewayTimeout, Response{Error: "transform timed out"})
			return
		}
		if errors.Is(err, assets.ErrNotFound) {
			c.JSON(http.StatusNotFound, Response{Error: "asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, Response{Error: err.Error()})
		return
	}
	// Asset bytes are immutable once uploaded (re-upload creates a new id),
	// so identical (id, options) pairs can be cached by intermediaries
	c.Header("cache-control", "public, max-age=604800, immutable")
	c.Data(http.StatusOK, mimeType, data)
}

// PackSetGet handles GET /api/assets/pack-set/:id
func PackSetGet(c *gin.Context) {
	pair, err := Assets.PairByPackSet(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, DataResponse{Success: true, Data: pair})
}
