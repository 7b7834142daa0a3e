package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/miraclezmoon/TELEBOT-19/services"
	"github.com/miraclezmoon/TELEBOT-19/utils"
)

// respondError maps a core failure onto the response envelope. The kind is echoed in data so the
// bot can pick its own wording.
func respondError(ctx *gin.Context, err error) {
	kind := services.KindOf(err)
	status, code := statusFor(kind)
	msg := err.Error()
	if kind == services.KindStorage {
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "error", err)
		msg = "internal error"
	}
	utils.Respond(ctx, status, code, msg, gin.H{"kind": kind.String()})
}

func statusFor(kind services.Kind) (int, int) {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound, 40401
	case services.KindAlreadyDone:
		return http.StatusConflict, 40901
	case services.KindInsufficientFunds:
		return http.StatusPaymentRequired, 40201
	case services.KindOutOfStock:
		return http.StatusConflict, 40902
	case services.KindInvalidInput:
		return http.StatusBadRequest, 40001
	default:
		return http.StatusInternalServerError, 50001
	}
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryLimit(ctx *gin.Context) int {
	n, err := strconv.Atoi(ctx.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}
