package docs

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seokjun4321/ReValue-sub000/internal/validation"
)

// SchemaCatalog describes the JSON schemas request bodies and order events
// are validated against.
type SchemaCatalog interface {
	SchemaNames() []string
	Document(name string) ([]byte, bool)
}

var descriptions = map[string]string{
	validation.SchemaPreferencesUpdate: "Body of PUT /api/v1/users/{userId}/preferences",
	validation.SchemaTrackRequest:      "Body of POST /api/v1/recommendations/{id}/track",
	validation.SchemaAuthToken:         "Body of POST /api/v1/auth/token",
	validation.SchemaOrderCompleted:    "Value of messages on the orders-completed topic",
}

type SchemaInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type SchemaHandler struct {
	catalog  SchemaCatalog
	basePath string
}

func NewSchemaHandler(catalog SchemaCatalog) *SchemaHandler {
	return &SchemaHandler{
		catalog:  catalog,
		basePath: "/docs/schemas",
	}
}

func (sh *SchemaHandler) RegisterRoutes(router *gin.Engine) {
	docs := router.Group(sh.basePath)
	{
		docs.GET("", sh.List)
		docs.GET("/:name", sh.Get)
	}
}

// List returns every published schema in name order.
func (sh *SchemaHandler) List(c *gin.Context) {
	names := sh.catalog.SchemaNames()
	schemas := make([]SchemaInfo, 0, len(names))
	for _, name := range names {
		schemas = append(schemas, SchemaInfo{
			Name:        name,
			Description: descriptions[name],
			URL:         sh.basePath + "/" + name,
		})
	}
	c.JSON(http.StatusOK, gin.H{"schemas": schemas})
}

func (sh *SchemaHandler) Get(c *gin.Context) {
	name := c.Param("name")
	doc, ok := sh.catalog.Document(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "SCHEMA_NOT_FOUND",
				"message": "Schema '" + name + "' not found",
			},
		})
		return
	}
	c.Data(http.StatusOK, "application/schema+json", doc)
}
