// Package pages holds the demo handlers served by the minihttp binary.
package pages

import (
	"log/slog"
	"time"

	"github.com/freekieb7/minihttp/filesystem"
	"github.com/freekieb7/minihttp/http"
)

const (
	GetPage   = "hello.html"
	OtherPage = "hello2.html"

	NotFoundBody  = "NOT_FOUND"
	PostHomeBody  = "POST HOME HANDLED"
	MyPathBody    = "ABC"
	PageErrorBody = "PAGE_UNAVAILABLE"
)

// SleepDuration is how long the Sleep handler blocks its connection.
var SleepDuration = 5 * time.Second

type Pages struct {
	fs     filesystem.Filesystem
	logger *slog.Logger
}

func New(fs filesystem.Filesystem, logger *slog.Logger) *Pages {
	return &Pages{fs: fs, logger: logger}
}

// Register installs the demo routes on router.
func (p *Pages) Register(router *http.Router) {
	router.GET("/my-path", MyPath)
	router.GET("/", p.Login)
	router.GET("/favicon.ico", NotFound)
	router.GET("/home", p.Home)
	router.GET("/sleep", Sleep)
	router.POST("/home", PostHome)
}

// Login serves hello.html to GET requests and hello2.html otherwise.
func (p *Pages) Login(req *http.Request) string {
	return p.byMethod(req)
}

func (p *Pages) Home(req *http.Request) string {
	return p.byMethod(req)
}

func (p *Pages) byMethod(req *http.Request) string {
	name := OtherPage
	if req.Method == "GET" {
		name = GetPage
	}

	content, err := p.fs.ReadFile(name)
	if err != nil {
		p.logger.Error("read page", "page", name, "error", err)
		return PageErrorBody
	}

	return string(content)
}

func NotFound(req *http.Request) string {
	return NotFoundBody
}

func MyPath(req *http.Request) string {
	return MyPathBody
}

func PostHome(req *http.Request) string {
	return PostHomeBody
}

// Sleep blocks for SleepDuration and returns an empty body.
func Sleep(req *http.Request) string {
	time.Sleep(SleepDuration)
	return ""
}
