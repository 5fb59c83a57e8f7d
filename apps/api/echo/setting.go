package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
	"github.com/darasalabs/darasa/core/setting"
)

type settingApi struct {
	svc *setting.Service
}

func registerSettingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *setting.Service) {
	api := settingApi{svc: svc}

	sg := g.Group("/settings", jwt, adminMiddleware())
	sg.GET("", api.query)
	sg.GET("/:key", api.retrieve)
	sg.PUT("/:key", api.upsert)
}

func (api *settingApi) query(ctx echo.Context) error {
	settings, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying settings")
	}
	if settings == nil {
		settings = []setting.Setting{}
	}
	return ctx.JSON(http.StatusOK, settings)
}

func (api *settingApi) retrieve(ctx echo.Context) error {
	val, err := api.svc.Get(ctx.Request().Context(), ctx.Param("key"), "")
	if err != nil {
		return errors.Wrap(err, "getting setting")
	}
	if val == "" {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, echo.Map{"key": ctx.Param("key"), "value": val})
}

func (api *settingApi) upsert(ctx echo.Context) error {
	var data UpsertSettingRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpsertSettingRequest")
	}
	if data.Type == "" {
		data.Type = setting.TypeString
	}
	switch data.Type {
	case setting.TypeString, setting.TypeInteger, setting.TypeBoolean, setting.TypeJSON:
	default:
		return core.NewValidationError(
			errors.New("unknown setting type"),
			core.FieldError{Field: "type", Error: "unknown setting type"},
		)
	}

	key := ctx.Param("key")
	if isPaginationKey(key) {
		n, err := strconv.Atoi(data.Value)
		if err != nil || n < 5 || n > 100 {
			return core.NewValidationError(
				errors.New("invalid page size"),
				core.FieldError{Field: "value", Error: "must be an integer between 5 and 100"},
			)
		}
		data.Type = setting.TypeInteger
	}

	s, err := api.svc.Set(ctx.Request().Context(), key, data.Value, data.Type, data.Description)
	if err != nil {
		return errors.Wrap(err, "saving setting")
	}
	return ctx.JSON(http.StatusOK, s)
}

func isPaginationKey(key string) bool {
	switch key {
	case setting.KeyStudentsPerPage, setting.KeyInstructorsPerPage, setting.KeyAdminsPerPage:
		return true
	}
	return false
}

type UpsertSettingRequest struct {
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description"`
}
