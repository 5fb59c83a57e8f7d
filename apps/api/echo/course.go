package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core/course"
	"github.com/darasalabs/darasa/core/user"
)

type courseApi struct {
	svc      *course.Service
	usrSvc   user.ServiceInterface
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *course.Service,
	usrSvc user.ServiceInterface,
	validate *validator.Validate,
) {
	api := courseApi{svc: svc, usrSvc: usrSvc, validate: validate}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, instructorMiddleware())
	cg.GET("/recorded", api.queryRecorded, instructorMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/tutors", api.attachTutors, adminMiddleware())
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

// queryRecorded lists the recorded courses visible to the requesting user.
func (api *courseApi) queryRecorded(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courses, err := api.svc.RecordedCoursesFor(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) attachTutors(ctx echo.Context) error {
	var data AttachTutorsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttachTutorsRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	if err := api.svc.AttachTutors(ctx.Request().Context(), ctx.Param("id"), data.TutorIDs...); err != nil {
		return errors.Wrap(err, "attaching tutors")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type AttachTutorsRequest struct {
	TutorIDs []string `json:"tutor_ids" validate:"required,min=1"`
}
