package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"server/assets"
	"server/config"
	"server/db"
	"server/imaging"
	"server/models"
	"server/storage"
	"testing"

	"github.com/chai2010/webp"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type localTransformer struct{}

func (localTransformer) Transform(data []byte, opts imaging.Options) ([]byte, error) {
	return imaging.Convert(data, opts)
}

func (localTransformer) Inspect(data []byte) (*imaging.Info, error) {
	return imaging.Inspect(data)
}

var handlerTestCounter = 0

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	handlerTestCounter++
	db.InitTest(fmt.Sprintf("handlers_test_%d", handlerTestCounter))
	config.DEFAULT_BUCKET_DIR = t.TempDir()
	storage.Init()
	models.Init()
	Init(assets.NewService(localTransformer{}))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/assets", AssetUpload)
	router.GET("/api/assets", AssetList)
	router.GET("/api/assets/active/:type", AssetActive)
	router.GET("/api/assets/pack-set/:id", PackSetGet)
	router.PUT("/api/assets/:type/:id/activate", AssetActivate)
	router.DELETE("/api/assets/:type/:id", AssetDelete)
	router.GET("/api/assets/:type/:id", AssetFetch)
	router.GET("/api/buckets", BucketList)
	return router
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartUpload(t *testing.T, assetType, packSetID string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="card.png"`)
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.WriteField("type", assetType))
	if packSetID != "" {
		require.NoError(t, writer.WriteField("packSetId", packSetID))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func doUpload(t *testing.T, router *gin.Engine, assetType, packSetID string) models.Asset {
	t.Helper()
	body, contentType := multipartUpload(t, assetType, packSetID, pngBytes(t, 100, 60))
	req := httptest.NewRequest("POST", "/api/assets", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool         `json:"success"`
		Data    models.Asset `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	return resp.Data
}

func TestUploadEndpoint(t *testing.T) {
	router := newTestRouter(t)
	asset := doUpload(t, router, models.AssetTypeCardBack, "")

	assert.NotZero(t, asset.ID)
	assert.Equal(t, models.AssetTypeCardBack, asset.Type)
	assert.True(t, asset.IsActive)
	assert.True(t, asset.HasDerivedWebp)
	assert.Equal(t, "image/png", asset.MimeType)
	assert.Equal(t, "card.png", asset.Name)
}

func TestUploadRejectsUnknownType(t *testing.T) {
	router := newTestRouter(t)
	body, contentType := multipartUpload(t, "banner", "", pngBytes(t, 10, 10))
	req := httptest.NewRequest("POST", "/api/assets", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRequiresFile(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest("POST", "/api/assets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEndpoint(t *testing.T) {
	router := newTestRouter(t)
	doUpload(t, router, models.AssetTypeCard, "")
	second := doUpload(t, router, models.AssetTypeCard, "")

	req := httptest.NewRequest("GET", "/api/assets?type=card", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    AssetListData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Assets, 2)
	assert.False(t, resp.Data.HasMore)
	assert.Equal(t, second.ID, resp.Data.Assets[0].ID)
}

func TestActivateAndActiveEndpoints(t *testing.T) {
	router := newTestRouter(t)
	first := doUpload(t, router, models.AssetTypeCard, "")
	second := doUpload(t, router, models.AssetTypeCard, "")
	assert.True(t, first.IsActive)

	req := httptest.NewRequest("PUT", fmt.Sprintf("/api/assets/card/%d/activate", second.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/api/assets/active/card", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Asset *models.Asset `json:"asset"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Asset)
	assert.Equal(t, second.ID, resp.Data.Asset.ID)
}

func TestActivateUnknownReturns404(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest("PUT", "/api/assets/card/9999/activate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	router := newTestRouter(t)
	asset := doUpload(t, router, models.AssetTypeCard, "")

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/assets/card/%d", asset.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// Second delete is a 404
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", fmt.Sprintf("/api/assets/card/%d", asset.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Active endpoint reports no active card
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/assets/active/card", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Asset *models.Asset `json:"asset"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Data.Asset)
}

func TestFetchEndpointServesWebp(t *testing.T) {
	router := newTestRouter(t)
	asset := doUpload(t, router, models.AssetTypeCard, "")

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/assets/card/%d?format=webp", asset.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/webp", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("cache-control"), "immutable")

	img, err := webp.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestFetchEndpointCustomWidth(t *testing.T) {
	router := newTestRouter(t)
	asset := doUpload(t, router, models.AssetTypeCard, "")

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/assets/card/%d?width=50", asset.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	img, err := webp.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestFetchEndpointOriginalWithResize(t *testing.T) {
	router := newTestRouter(t)
	asset := doUpload(t, router, models.AssetTypeCard, "")

	// Resizing re-encodes, so it cannot honour format=original
	req := httptest.NewRequest("GET", fmt.Sprintf("/api/assets/card/%d?format=original&width=50", asset.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFetchEndpointUnknownAsset(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest("GET", "/api/assets/card/31337", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPackSetEndpoint(t *testing.T) {
	router := newTestRouter(t)
	front := doUpload(t, router, models.AssetTypePackFront, "set-5")
	back := doUpload(t, router, models.AssetTypePackBack, "set-5")

	req := httptest.NewRequest("GET", "/api/assets/pack-set/set-5", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool        `json:"success"`
		Data    assets.Pair `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data.Front)
	require.NotNil(t, resp.Data.Back)
	assert.Equal(t, front.ID, resp.Data.Front.ID)
	assert.Equal(t, back.ID, resp.Data.Back.ID)
}

func TestBucketListEndpoint(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest("GET", "/api/buckets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool             `json:"success"`
		Data    []storage.Bucket `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1) // the default bucket
}
