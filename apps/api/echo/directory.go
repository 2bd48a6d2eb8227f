package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/directory"
)

type directoryApi struct {
	deps *ServerDeps
}

func registerDirectoryAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps *ServerDeps) {
	api := directoryApi{deps: deps}

	// public browse; only approved institutes are visible
	dg := g.Group("/directory")
	dg.GET("/institutes", api.institutes)
	dg.GET("/institutes/:id/courses", api.instituteCourses)
	dg.GET("/institutes/:id/reviews", api.instituteReviews)

	// student-facing
	sg := dg.Group("", jwt, studentMiddleware(deps))
	sg.POST("/institutes/:id/enquiries", api.sendEnquiry)
	sg.POST("/institutes/:id/reviews", api.postReview)

	// institute-facing; approval required
	ig := g.Group("/institute", jwt, instituteMiddleware(deps))
	ig.GET("/courses", api.ownCourses)
	ig.POST("/courses", api.createCourse)
	ig.PUT("/courses/:id", api.updateCourse)
	ig.DELETE("/courses/:id", api.deleteCourse)
	ig.GET("/enquiries", api.ownEnquiries)
	ig.GET("/reviews", api.ownReviews)
}

// Public handlers

func (api *directoryApi) institutes(ctx echo.Context) error {
	idents, err := api.deps.DirSvc.ApprovedInstitutes()
	if err != nil {
		return errors.Wrap(err, "querying approved institutes")
	}
	return ctx.JSON(http.StatusOK, idents)
}

func (api *directoryApi) instituteCourses(ctx echo.Context) error {
	courses, err := api.deps.DirSvc.CoursesByInstitute(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *directoryApi) instituteReviews(ctx echo.Context) error {
	reviews, err := api.deps.DirSvc.ReviewsByInstitute(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reviews)
}

// Student handlers

func (api *directoryApi) sendEnquiry(ctx echo.Context) error {
	var data directory.NewEnquiry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnquiry")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ident, err := getContextIdentity(ctx, api.deps)
	if err != nil {
		return err
	}
	enquiry, err := api.deps.DirSvc.SendEnquiry(ident, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, enquiry)
}

func (api *directoryApi) postReview(ctx echo.Context) error {
	var data directory.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ident, err := getContextIdentity(ctx, api.deps)
	if err != nil {
		return err
	}
	review, err := api.deps.DirSvc.PostReview(ident, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, review)
}

// Institute handlers

func (api *directoryApi) ownCourses(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.deps)
	if err != nil {
		return err
	}
	courses, err := api.deps.DirSvc.InstituteCourses(ident)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *directoryApi) createCourse(ctx echo.Context) error {
	var data directory.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ident, err := getContextIdentity(ctx, api.deps)
	if err != nil {
		return err
	}
	course, err := api.deps.DirSvc.CreateCourse(ident, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, course)
}

func (api *directoryApi) updateCourse(ctx echo.Context) error {
	var data directory.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	ident, err := getContextIdentity(ctx, api.deps)
	if err != nil {
		return err
	}
	course, err := api.deps.DirSvc.UpdateCourse(ident, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *directoryApi) deleteCourse(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.deps)
	if err != nil {
		return err
	}
	if err := api.deps.DirSvc.DeleteCourse(ident, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Enquiries/reviews inboxes

func (api *directoryApi) ownEnquiries(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.deps)
	if err != nil {
		return err
	}
	enquiries, err := api.deps.DirSvc.InstituteEnquiries(ident)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enquiries)
}

func (api *directoryApi) ownReviews(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx, api.deps)
	if err != nil {
		return err
	}
	reviews, err := api.deps.DirSvc.InstituteReviews(ident)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reviews)
}
