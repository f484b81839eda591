package app

import "github.com/gin-gonic/gin"

// Module defines the contract for a self-registering feature module.
// Each module mounts its routes on the versioned API group.
type Module interface {
	RegisterRoutes(api *gin.RouterGroup)
}
