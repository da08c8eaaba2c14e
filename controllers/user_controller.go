package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/board/middleware"
	"github.com/cppla/board/models"
	"github.com/cppla/board/services"
	"github.com/cppla/board/utils"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/user"
)

// UserController handles accounts and token issuance.
type UserController struct {
	users      *services.UserService
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewUserController creates a new UserController instance.
func NewUserController(users *services.UserService, accessTTL, refreshTTL time.Duration) *UserController {
	return &UserController{users: users, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Signup registers a local account.
func (u *UserController) Signup(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Name     string `json:"name" binding:"required"`
		Nickname string `json:"nickname" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	ip := ctx.ClientIP()
	if !utils.SignupAllowed(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily signup limit reached")
		return
	}

	profile, err := u.users.Signup(ctx.Request.Context(), services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Nickname: req.Nickname,
	})
	if err != nil {
		respondError(ctx, err, 50002, "failed to create user")
		return
	}

	utils.SignupRecord(ctx.Request.Context(), ip)
	utils.Created(ctx, profile)
}

// Login verifies credentials, returns an access token and sets the refresh cookie.
func (u *UserController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := u.users.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err, 50004, "failed to log in")
		return
	}

	access, err := utils.GenerateToken(user.ID, user.Email, utils.TokenTypeAccess, u.accessTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to generate token")
		return
	}
	refresh, err := utils.GenerateToken(user.ID, user.Email, utils.TokenTypeRefresh, u.refreshTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to generate token")
		return
	}
	if err := u.users.SaveRefreshToken(ctx.Request.Context(), user.ID, refresh); err != nil {
		respondError(ctx, err, 50006, "failed to store refresh token")
		return
	}

	u.setRefreshCookie(ctx, refresh, int(u.refreshTTL.Seconds()))
	utils.Success(ctx, gin.H{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   int(u.accessTTL.Seconds()),
		"user":         loginView(user),
	})
}

// Refresh exchanges the refresh cookie for a new access token.
func (u *UserController) Refresh(ctx *gin.Context) {
	token, err := ctx.Cookie(refreshCookieName)
	if err != nil || token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "refresh token missing")
		return
	}
	claims, err := utils.ParseToken(token, utils.TokenTypeRefresh)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "invalid refresh token")
		return
	}

	user, err := u.users.VerifyRefreshToken(ctx.Request.Context(), claims.UserID, token)
	if err != nil {
		respondError(ctx, err, 50007, "failed to refresh token")
		return
	}

	access, err := utils.GenerateToken(user.ID, user.Email, utils.TokenTypeAccess, u.accessTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   int(u.accessTTL.Seconds()),
	})
}

// Logout revokes the presented access token and empties the refresh slot.
func (u *UserController) Logout(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	u.revokeAccessToken(ctx)
	if err := u.users.ClearRefreshToken(ctx.Request.Context(), userID); err != nil {
		respondError(ctx, err, 50008, "failed to log out")
		return
	}

	u.setRefreshCookie(ctx, "", -1)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// GetUser returns a user's public profile. The email is included for the user themself.
func (u *UserController) GetUser(ctx *gin.Context) {
	targetID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	viewerID, ok := requireUser(ctx)
	if !ok {
		return
	}

	profile, err := u.users.ByID(ctx.Request.Context(), targetID, viewerID)
	if err != nil {
		respondError(ctx, err, 50009, "failed to load user")
		return
	}
	utils.Success(ctx, profile)
}

// UpdateMe changes the caller's name and nickname.
func (u *UserController) UpdateMe(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Nickname *string `json:"nickname"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40015, "invalid request payload")
		return
	}

	profile, err := u.users.UpdateProfile(ctx.Request.Context(), userID, services.ProfileUpdate{
		Name:     req.Name,
		Nickname: req.Nickname,
	})
	if err != nil {
		respondError(ctx, err, 50010, "failed to update profile")
		return
	}
	utils.Success(ctx, profile)
}

// DeleteMe soft deletes the caller's account after re-checking email and password.
func (u *UserController) DeleteMe(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40016, "invalid request payload")
		return
	}

	if err := u.users.DeleteMe(ctx.Request.Context(), userID, req.Email, req.Password); err != nil {
		respondError(ctx, err, 50011, "failed to delete account")
		return
	}

	u.revokeAccessToken(ctx)
	u.setRefreshCookie(ctx, "", -1)
	utils.Success(ctx, gin.H{"user_id": userID, "deleted": true})
}

func (u *UserController) revokeAccessToken(ctx *gin.Context) {
	jti := ctx.GetString(middleware.ContextTokenIDKey)
	if jti == "" {
		return
	}
	utils.BlacklistToken(ctx.Request.Context(), jti, ctx.GetTime(middleware.ContextTokenExpiryKey))
}

func (u *UserController) setRefreshCookie(ctx *gin.Context, value string, maxAge int) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, value, maxAge, refreshCookiePath, "", true, true)
}

func loginView(user *models.User) gin.H {
	return gin.H{
		"user_id":  user.ID,
		"email":    user.Email,
		"name":     user.Name,
		"nickname": user.Nickname,
	}
}
