package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"crashreporter/collector/cfg"
	"crashreporter/collector/service"
	"crashreporter/common/format"
	"crashreporter/common/formdata"
	"crashreporter/common/task"

	"github.com/gin-gonic/gin"
	"github.com/satori/go.uuid"
	log "github.com/sirupsen/logrus"
)

const (
	MetadataFile = "metadata.json"
	DumpFile     = "minidump.dmp"

	// MaxMetadataSize bounds the metadata part kept in memory.
	MaxMetadataSize = 64 * 1024
)

type BaseReply struct {
	Status string `json:"status"`
}

type CrashReply struct {
	BaseReply
	Id       string `json:"id"`
	Received int64  `json:"received"`
}

type GinCollectorService struct {
	engine  *gin.Engine
	conf    cfg.Config
	service *service.CollectorService
	metrics *metrics
}

// upload is what the crash endpoint collected from one request.
type upload struct {
	metadata []byte
	dump     string
	dumpName string
	dumpSize int64
	hasDump  bool
}

// replyError carries the status code to answer with.
type replyError struct {
	status int
	descr  string
	err    error
}

func badRequest(descr string, err error) *replyError {
	return &replyError{http.StatusBadRequest, descr, err}
}

func serverError(descr string, err error) *replyError {
	return &replyError{http.StatusInternalServerError, descr, err}
}

func (m *GinCollectorService) Init() error {
	cfg.GlobalConfigMutex.Lock()
	defer cfg.GlobalConfigMutex.Unlock()

	s, err := service.NewCollector(cfg.GlobalConfig)
	if err != nil {
		return err
	}
	return m.init(cfg.GlobalConfig, s)
}

func (m *GinCollectorService) init(c cfg.Config, s *service.CollectorService) error {
	m.conf = c
	m.service = s
	m.metrics = newMetrics()

	m.engine = gin.New()
	m.engine.Use(gin.Recovery(), requestLogger(), m.metrics.middleware())

	if err := os.MkdirAll(m.conf.DumpsDir(), 0755); err != nil {
		log.WithError(err).Error("Can't create dumps directory")
		return err
	}

	m.applyRoutes()
	return nil
}

func (m *GinCollectorService) Start() error {
	addres := fmt.Sprintf("%s:%d", m.conf.Host(), m.conf.Port())
	log.WithField("address", addres).Info("Run on")
	return m.engine.Run(addres)
}

func (m *GinCollectorService) Close() {
	if m.service != nil {
		m.service.Close()
	}
}

func (m *GinCollectorService) applyRoutes() {
	m.engine.POST(m.conf.CrashPath(), m.PostCrash())
	if m.conf.MonitoringEnable() {
		m.engine.GET(m.conf.MonitoringPath(), m.metrics.handler())
	}
}

func (m *GinCollectorService) setSuccess(c *gin.Context, id string, received int64) {
	c.JSON(http.StatusOK, &CrashReply{BaseReply{"success"}, id, received})
}

func (m *GinCollectorService) setError(c *gin.Context, e *replyError) {
	fields := log.Fields{
		"status": e.status,
		"reason": e.descr,
	}
	if e.err != nil {
		fields["error"] = e.err
	}
	log.WithFields(fields).Warning("Crash upload rejected")
	c.JSON(e.status, &BaseReply{fmt.Sprintf("error: %s", e.descr)})
}

func (m *GinCollectorService) PostCrash() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := m.conf.ApiKey(); key != "" && c.GetHeader("X-API-Key") != key {
			m.metrics.crash("unauthorized")
			m.setError(c, &replyError{status: http.StatusUnauthorized, descr: "Invalid API key"})
			return
		}

		body := &countingReader{ReadCloser: c.Request.Body}
		c.Request.Body = body
		mr, err := c.Request.MultipartReader()
		if err != nil {
			m.metrics.crash("rejected")
			m.setError(c, badRequest("Expected multipart/form-data body", err))
			return
		}

		id := uuid.NewV4().String()
		dir := filepath.Join(m.conf.DumpsDir(), id)
		if err := os.MkdirAll(dir, 0755); err != nil {
			m.metrics.crash("failed")
			m.setError(c, serverError("Could not create crash directory", err))
			return
		}

		crash, rErr := m.store(mr, body, c.Request.ContentLength, id, dir)
		m.metrics.received.Add(float64(body.n))
		if rErr != nil {
			os.RemoveAll(dir)
			if rErr.status == http.StatusBadRequest {
				m.metrics.crash("rejected")
			} else {
				m.metrics.crash("failed")
			}
			m.setError(c, rErr)
			return
		}

		log.WithFields(log.Fields{
			"id":             id,
			"version":        crash.Info.ExeVersion,
			"exception_code": crash.Info.ExceptionCode,
			"size":           crash.Size,
			"received":       body.n,
		}).Info("Crash stored")
		m.metrics.crash("stored")
		m.setSuccess(c, id, body.n)
	}
}

// store receives the whole body, checks it and hands the crash to the service.
func (m *GinCollectorService) store(mr *multipart.Reader, body *countingReader, declared int64, id, dir string) (*task.Crash, *replyError) {
	up, rErr := m.receive(mr, dir)
	if rErr != nil {
		return nil, rErr
	}

	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, badRequest("Can't read request body", err)
	}
	if declared >= 0 && body.n != declared {
		return nil, badRequest(fmt.Sprintf("Received %d bytes, Content-Length is %d", body.n, declared), nil)
	}

	info, err := format.MetadataFromJson(up.metadata)
	if err != nil {
		return nil, badRequest("Metadata invalid format", err)
	}
	if err := info.Validate(); err != nil {
		return nil, badRequest(err.Error(), err)
	}

	metaPath := filepath.Join(dir, MetadataFile)
	if err := os.WriteFile(metaPath, up.metadata, 0644); err != nil {
		return nil, serverError("Could not store metadata", err)
	}

	crash := task.CreateCrashTask(id, up.dump, metaPath, up.dumpSize, info)
	if err := m.service.AddCrash(crash); err != nil {
		return nil, serverError("Can't add new task to process crash", err)
	}
	return crash, nil
}

func (m *GinCollectorService) receive(mr *multipart.Reader, dir string) (*upload, *replyError) {
	up := &upload{dump: filepath.Join(dir, DumpFile)}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, badRequest("Malformed multipart body", err)
		}

		switch part.FormName() {
		case formdata.MetadataField:
			up.metadata, err = io.ReadAll(io.LimitReader(part, MaxMetadataSize+1))
			if err != nil {
				part.Close()
				return nil, badRequest("Can't read 'metadata'", err)
			}
			if len(up.metadata) > MaxMetadataSize {
				part.Close()
				return nil, badRequest("Metadata is too large", nil)
			}
		case formdata.MinidumpField:
			up.dumpName = part.FileName()
			if rErr := m.saveFile(up, part); rErr != nil {
				part.Close()
				return nil, rErr
			}
		default:
			log.WithField("part", part.FormName()).Debug("Skip unknown part")
		}
		part.Close()
	}

	if up.metadata == nil {
		return nil, badRequest("Missing part 'metadata'", nil)
	}
	if !up.hasDump {
		return nil, badRequest("Missing part 'minidump'", nil)
	}
	return up, nil
}

func (m *GinCollectorService) saveFile(up *upload, src io.Reader) *replyError {
	file, err := os.Create(up.dump)
	if err != nil {
		return serverError("Could not create minidump file", err)
	}
	defer file.Close()

	up.dumpSize, err = io.Copy(file, src)
	if err != nil {
		return badRequest("Can't upload 'minidump'", err)
	}
	up.hasDump = true

	log.WithFields(log.Fields{
		"file": up.dumpName,
		"size": up.dumpSize,
	}).Debug("Minidump received")
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Debug("Request")
	}
}

// countingReader counts the body bytes actually received.
type countingReader struct {
	io.ReadCloser
	n int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n += int64(n)
	return n, err
}
