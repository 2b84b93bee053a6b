package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/genie/internal/apperr"
	"github.com/your-org/genie/internal/executor"
	"github.com/your-org/genie/internal/registry"
	"github.com/your-org/genie/pkg/adapters"
)

// RequestTemperature applies when a request omits temperature.
const RequestTemperature = 0.5

type handlers struct {
	app *App
}

type addBody struct {
	Category string `json:"category" binding:"required"`
	ID       string `json:"id" binding:"required"`
	Name     string `json:"name"`
	BaseURL  string `json:"base_url"`
	Port     int    `json:"port" binding:"gte=0,lte=65535"`
}

type updateBody struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Port    int    `json:"port" binding:"gte=0,lte=65535"`
}

type executeBody struct {
	ModelName          string   `json:"model_name" binding:"required"`
	SystemPrompt       string   `json:"system_prompt"`
	UserPrompt         string   `json:"user_prompt" binding:"required"`
	ResponseMaxLength  *int     `json:"response_max_length"`
	ListFormatResponse bool     `json:"list_format_response"`
	ExcludedText       string   `json:"excluded_text"`
	Format             string   `json:"format" binding:"omitempty,oneof=text json"`
	Temperature        *float64 `json:"temperature" binding:"omitempty,gte=0,lte=1"`
}

func (b executeBody) request() adapters.ExecutionRequest {
	return adapters.ExecutionRequest{
		ModelID:            b.ModelName,
		SystemPrompt:       b.SystemPrompt,
		UserPrompt:         b.UserPrompt,
		ResponseMaxLength:  lengthOrUnbounded(b.ResponseMaxLength),
		ListFormatResponse: b.ListFormatResponse,
		ExcludedTerm:       b.ExcludedText,
		OutputFormat:       formatOrText(b.Format),
		Temperature:        temperatureOrDefault(b.Temperature),
	}
}

type metamorphicBody struct {
	ModelName          string   `json:"model_name" binding:"required"`
	Prompt1            string   `json:"prompt_1" binding:"required"`
	Prompt2            string   `json:"prompt_2" binding:"required"`
	ResponseMaxLength  *int     `json:"response_max_length"`
	ListFormatResponse bool     `json:"list_format_response"`
	ExcludedText       []string `json:"excluded_text"`
	Temperature        *float64 `json:"temperature" binding:"omitempty,gte=0,lte=1"`
	Type               string   `json:"type"`
}

func (b metamorphicBody) request() executor.MetamorphicRequest {
	return executor.MetamorphicRequest{
		ModelID:            b.ModelName,
		Prompt1:            b.Prompt1,
		Prompt2:            b.Prompt2,
		ResponseMaxLength:  lengthOrUnbounded(b.ResponseMaxLength),
		ListFormatResponse: b.ListFormatResponse,
		ExcludedTerms:      b.ExcludedText,
		Temperature:        temperatureOrDefault(b.Temperature),
		Mode:               executor.Mode(b.Type),
	}
}

func lengthOrUnbounded(v *int) int {
	if v == nil {
		return adapters.Unbounded
	}
	return *v
}

func temperatureOrDefault(v *float64) float64 {
	if v == nil {
		return RequestTemperature
	}
	return *v
}

func formatOrText(f string) adapters.Format {
	if f == "" {
		return adapters.FormatText
	}
	return adapters.Format(f)
}

func (h *handlers) list(c *gin.Context) {
	var category []registry.Category
	if raw := c.Query("category"); raw != "" {
		category = append(category, registry.Category(raw))
	}
	ids, err := h.app.Store.ListIDs(c.Request.Context(), category...)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (h *handlers) details(c *gin.Context) {
	doc, err := h.app.Store.Details(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *handlers) add(c *gin.Context) {
	var body addBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, invalidBody(err))
		return
	}
	ctx := c.Request.Context()
	category := registry.Category(body.Category)
	err := h.app.Store.Add(ctx, registry.AddInput{
		Category:     category,
		ID:           body.ID,
		ProviderName: body.Name,
		Endpoint:     body.BaseURL,
		Port:         body.Port,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	entry := registry.Entry{ID: body.ID, Category: category}
	if category == registry.Ollama {
		local, ok, err := h.app.Store.LocalEntry(ctx, body.ID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if ok {
			entry = local
		}
	}
	c.JSON(http.StatusOK, entry)
}

func (h *handlers) update(c *gin.Context) {
	id := c.Param("id")
	var body updateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, invalidBody(err))
		return
	}
	ctx := c.Request.Context()
	err := h.app.Store.Update(ctx, registry.UpdateInput{
		ID:           id,
		ProviderName: body.Name,
		Endpoint:     body.BaseURL,
		Port:         body.Port,
	})
	if apperr.KindOf(err) == apperr.KindNotFound {
		abortWithMessage(c, http.StatusNotFound, fmt.Sprintf("Model with id %s not found in Ollama configuration", id))
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	entry, _, err := h.app.Store.LocalEntry(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": entry.ID, "name": entry.ProviderName, "url": entry.Endpoint})
}

func (h *handlers) remove(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	ok, err := h.app.Store.Exists(ctx, id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !ok {
		abortWithError(c, apperr.NotFound(id))
		return
	}
	if err := h.app.Store.Remove(ctx, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully removed."})
}

func (h *handlers) installed(c *gin.Context) {
	models, err := h.app.Ollama.ListInstalled(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, models)
}

func (h *handlers) check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "The model routes are working properly!"})
}

func (h *handlers) execute(c *gin.Context) {
	var body executeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, invalidBody(err))
		return
	}
	text, err := h.app.Orchestrator.Execute(c.Request.Context(), body.request())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": text})
}

func (h *handlers) metamorphic(c *gin.Context) {
	var body metamorphicBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, invalidBody(err))
		return
	}
	res, err := h.app.Orchestrator.ExecuteMetamorphic(c.Request.Context(), body.request())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
