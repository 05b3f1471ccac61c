package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/handlers"
	"github.com/you/accountsvc/internal/http/middleware"
)

// UsersPrefix is the base path of the account routes.
const UsersPrefix = "/api/v1/users"

// RouterDeps collects what BuildRouter wires together.
type RouterDeps struct {
	Accounts *handlers.AccountHandlers
	Policies *handlers.PolicyHandlers
	Health   *handlers.HealthHandlers
	Auth     *middleware.AuthMW
	Casbin   *middleware.CasbinMW
	Logger   zerolog.Logger
	// DetailedErrors adds error detail to responses (development mode).
	DetailedErrors bool
}

func BuildRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestLogger(d.Logger),
		middleware.ErrorHandler(d.Logger, d.DetailedErrors),
		middleware.Recovery(),
		middleware.ClientContext(),
	)

	r.GET("/health", d.Health.Health)

	users := r.Group(UsersPrefix)
	users.POST("/signup", d.Accounts.Signup)
	users.POST("/signin", d.Accounts.Signin)
	users.POST("/signout", d.Accounts.Signout)
	users.POST("/verifyEmail", d.Accounts.VerifyEmail)
	users.POST("/forgotPassword", d.Accounts.ForgotPassword)
	users.POST("/resetPassword/:resetToken", d.Accounts.ResetPassword)

	me := users.Group("", d.Auth.Protect(), d.Auth.RestrictTo(domain.RoleUser, domain.RoleAdmin), d.Casbin.Enforce())
	me.GET("/myProfile", d.Accounts.MyProfile)
	me.PATCH("/updateProfile", d.Accounts.UpdateProfile)
	me.DELETE("/deleteProfile", d.Accounts.DeleteProfile)
	me.POST("/updatePassword", d.Accounts.UpdatePassword)

	adm := r.Group("/api/v1/policies", d.Auth.Protect(), d.Auth.RestrictTo(domain.RoleAdmin))
	adm.GET("", d.Policies.List)
	adm.POST("", d.Policies.Add)
	adm.DELETE("", d.Policies.Remove)

	r.NoRoute(middleware.NotFound())

	return r
}
