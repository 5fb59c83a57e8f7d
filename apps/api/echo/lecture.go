package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasalabs/darasa/core"
	"github.com/darasalabs/darasa/core/lecture"
	"github.com/darasalabs/darasa/core/user"
)

type lectureApi struct {
	svc    *lecture.Service
	usrSvc user.ServiceInterface
	conf   *core.Config
}

func registerLectureAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *lecture.Service,
	usrSvc user.ServiceInterface,
	conf *core.Config,
) {
	api := lectureApi{svc: svc, usrSvc: usrSvc, conf: conf}

	cg := g.Group("/courses/:courseID/lectures", jwt)
	cg.POST("", api.submitBatch, instructorMiddleware())
	cg.GET("", api.queryByCourse)
	cg.GET("/orders", api.usedOrders)

	lg := g.Group("/lectures", jwt)
	lg.GET("/:id", api.retrieve)
}

// submitBatch accepts a multipart form with parallel `title`, `description`,
// `order` and `video` fields, one entry per lecture. The response is the
// aggregate batch result; per-item failures do not fail the request.
func (api *lectureApi) submitBatch(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return core.NewValidationError(errors.New("a multipart form with video files is required"))
	}

	titles := form.Value["title"]
	descriptions := form.Value["description"]
	orders := form.Value["order"]
	videos := form.File["video"]

	if len(videos) == 0 {
		return core.NewValidationError(errors.New("no lectures submitted"))
	}
	if len(titles) != len(videos) || len(orders) != len(videos) {
		return core.NewValidationError(errors.New("each video needs a matching title and order"))
	}

	subs := make([]lecture.Submission, 0, len(videos))
	closers := make([]func(), 0, len(videos))
	defer func() {
		for _, close := range closers {
			close()
		}
	}()

	for i, fh := range videos {
		order, err := strconv.Atoi(orders[i])
		if err != nil {
			return core.NewValidationError(
				errors.New("order must be a number"),
				core.FieldError{Field: "order", Error: "order must be a number"},
			)
		}

		f, err := fh.Open()
		if err != nil {
			return errors.Wrapf(err, "opening uploaded video %q", fh.Filename)
		}
		closers = append(closers, func() { _ = f.Close() })

		sub := lecture.Submission{
			Title: titles[i],
			Order: order,
			File:  f,
		}
		if i < len(descriptions) {
			sub.Description = descriptions[i]
		}
		subs = append(subs, sub)
	}

	res, err := api.svc.SubmitBatch(ctx.Request().Context(), ctx.Param("courseID"), subs)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, BatchUploadResponse{
		BatchResult: res,
		Message:     res.Message(),
	})
}

func (api *lectureApi) queryByCourse(ctx echo.Context) error {
	lectures, err := api.svc.QueryByCourse(ctx.Request().Context(), ctx.Param("courseID"))
	if err != nil {
		return errors.Wrap(err, "querying lectures")
	}
	if lectures == nil {
		lectures = []lecture.Lecture{}
	}
	return ctx.JSON(http.StatusOK, lectures)
}

func (api *lectureApi) usedOrders(ctx echo.Context) error {
	orders, err := api.svc.UsedOrders(ctx.Request().Context(), ctx.Param("courseID"))
	if err != nil {
		return errors.Wrap(err, "querying used orders")
	}
	if orders == nil {
		orders = []int{}
	}
	return ctx.JSON(http.StatusOK, UsedOrdersResponse{Orders: orders})
}

func (api *lectureApi) retrieve(ctx echo.Context) error {
	lec, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == lecture.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting lecture")
	}
	return ctx.JSON(http.StatusOK, lec)
}

type (
	BatchUploadResponse struct {
		lecture.BatchResult
		Message string `json:"message"`
	}

	UsedOrdersResponse struct {
		Orders []int `json:"orders"`
	}
)
