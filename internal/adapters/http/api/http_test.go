package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/appraisal/internal/adapters/geocoder"
	"github.com/okian/appraisal/internal/adapters/http/api"
	"github.com/okian/appraisal/internal/adapters/valuation"
	service "github.com/okian/appraisal/internal/app"
	"github.com/okian/appraisal/internal/domain/model"
	"github.com/okian/appraisal/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockDependencies struct {
	result    model.ValuationResult
	runErr    error
	gotAttrs  model.PropertyAttributes
	runCalls  int
	link      string
	exportErr error
	gotReport model.ValuationReport
}

func (m *mockDependencies) RunValuation(_ context.Context, attrs model.PropertyAttributes) (model.ValuationResult, error) {
	m.runCalls++
	m.gotAttrs = attrs
	return m.result, m.runErr
}

func (m *mockDependencies) Export(_ context.Context, r model.ValuationReport) (string, error) {
	m.gotReport = r
	return m.link, m.exportErr
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"runs": 3}}).Register(context.Background(), mux)
	return mux
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

const valuationBody = `{"areautil":80,"anoconstrucao":2010,"banheiros":2,"dormitorio":3,"suites":1,
	"vagas":1,"tipoimovel":"apartamento","tipotransacao":"venda","cep":"01311000",
	"estado":"SP","bairro":"Bela Vista","logradouro":"Av. Paulista","numero":"1000","cidade":"São Paulo"}`

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		mux := newMux(&mockDependencies{})

		Convey("Then the health endpoint serves metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/plain")
		})

		Convey("And the stats endpoint serves JSON counters", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var stats map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &stats), ShouldBeNil)
			So(stats["runs"], ShouldEqual, 3.0)
		})

		Convey("And stats rejects other methods", func() {
			So(do(mux, http.MethodPost, "/stats", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a nil mux", t, func() {
		server := api.NewServer(&mockDependencies{}, &mockStatsProvider{})
		So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
	})
}

func TestValuationHandler(t *testing.T) {
	Convey("Given the valuation endpoint", t, func() {
		deps := &mockDependencies{
			result: model.ValuationResult{
				Report: model.ValuationReport{PostalCode: "01311000", TotalCentral: 720000, Comparables: []model.ComparableListing{}},
				Range:  model.ValuationRange{Min: 8000, Central: 9000, Max: 10000, Neighbors: 12},
			},
		}
		mux := newMux(deps)

		Convey("When a valid request is posted", func() {
			w := do(mux, http.MethodPost, "/doc", valuationBody)

			Convey("Then the form fields reach the service", func() {
				So(deps.gotAttrs.UsableArea, ShouldEqual, 80.0)
				So(deps.gotAttrs.Bedrooms, ShouldEqual, 3)
				So(deps.gotAttrs.Street, ShouldEqual, "Av. Paulista")
				So(deps.gotAttrs.PostalCode, ShouldEqual, "01311000")
			})

			Convey("And the result is returned as JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["excelobj"]["vcen"], ShouldEqual, 720000.0)
				So(body["excelobj"]["bros"], ShouldResemble, []any{})
				So(body["avm"]["num_vizinhos"], ShouldEqual, 12.0)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/doc", "{")

			Convey("Then it is a bad request and the service is not called", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "invalid_input")
				So(deps.runCalls, ShouldEqual, 0)
			})
		})

		Convey("When the method is GET", func() {
			So(do(mux, http.MethodGet, "/doc", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("When the attributes are invalid", func() {
			deps.runErr = errors.Join(model.ErrInvalidAttributes, model.ErrInvalidArea)
			w := do(mux, http.MethodPost, "/doc", valuationBody)

			Convey("Then the status is 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "invalid_input")
			})
		})

		Convey("When geocoding finds nothing", func() {
			deps.runErr = &service.PipelineError{
				Stage: service.StageGeocoding,
				Err:   &geocoder.GeocodeError{Kind: geocoder.KindNotFound, Address: "x"},
			}
			w := do(mux, http.MethodPost, "/doc", valuationBody)

			Convey("Then the status is 422 and the stage is reported", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "not_found")
				So(body["stage"], ShouldEqual, "geocoding")
				So(body["status"], ShouldEqual, 422.0)
			})
		})

		Convey("When the estimate fails upstream", func() {
			deps.runErr = &service.PipelineError{
				Stage: service.StageEstimating,
				Err:   &valuation.ValuationError{Kind: valuation.KindUpstream, Op: "avm", Status: 500},
			}
			w := do(mux, http.MethodPost, "/doc", valuationBody)
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(decodeError(w)["stage"], ShouldEqual, "estimating")
		})

		Convey("When the provider is unavailable", func() {
			deps.runErr = &service.PipelineError{
				Stage: service.StageEstimating,
				Err:   &valuation.ValuationError{Kind: valuation.KindUnavailable, Op: "login"},
			}
			So(do(mux, http.MethodPost, "/doc", valuationBody).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When a stage times out", func() {
			deps.runErr = &service.PipelineError{Stage: service.StageGeocoding, Err: context.DeadlineExceeded}
			So(do(mux, http.MethodPost, "/doc", valuationBody).Code, ShouldEqual, http.StatusGatewayTimeout)
		})
	})
}

func TestExportHandler(t *testing.T) {
	Convey("Given the export endpoint", t, func() {
		deps := &mockDependencies{link: "https://drive.google.com/uc?export=download&id=f1"}
		mux := newMux(deps)

		Convey("When a report is posted", func() {
			w := do(mux, http.MethodPost, "/excel", `{"cep":"01311000","end":"Av. Paulista","vcen":720000,"bros":[]}`)

			Convey("Then the link is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]string
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["link"], ShouldEqual, deps.link)
				So(deps.gotReport.PostalCode, ShouldEqual, "01311000")
				So(deps.gotReport.TotalCentral, ShouldEqual, 720000.0)
			})
		})

		Convey("When the public grant fails", func() {
			deps.exportErr = &service.ExportError{Kind: service.KindPermission, FileID: "f1", Err: errors.New("forbidden")}
			w := do(mux, http.MethodPost, "/excel", `{"cep":"01311000"}`)

			Convey("Then the status is 502 with the permission kind", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(decodeError(w)["code"], ShouldEqual, "permission")
			})
		})

		Convey("When export is not configured", func() {
			deps.exportErr = service.ErrExportNotConfigured
			So(do(mux, http.MethodPost, "/excel", `{"cep":"01311000"}`).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the body is not JSON", func() {
			So(do(mux, http.MethodPost, "/excel", "nope").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given a handler behind the request id and CORS middleware", t, func() {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.RequestID(r.Context())
			w.WriteHeader(http.StatusOK)
		})
		h := api.CORSMiddleware(api.RequestIDMiddleware(inner))

		Convey("When the client sends no request id", func() {
			w := do(h, http.MethodGet, "/", "")

			Convey("Then one is generated, echoed and put in the context", func() {
				id := w.Header().Get(api.RequestIDHeader)
				So(id, ShouldNotBeEmpty)
				So(seen, ShouldEqual, id)
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			})
		})

		Convey("When the client sends one", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is kept", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
				So(seen, ShouldEqual, "abc-123")
			})
		})

		Convey("When a preflight request arrives", func() {
			seen = "untouched"
			req := httptest.NewRequest(http.MethodOptions, "/doc", nil)
			req.Header.Set("Access-Control-Request-Method", "POST")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is answered without reaching the handler", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(w.Header().Get("Access-Control-Allow-Methods"), ShouldContainSubstring, "POST")
				So(seen, ShouldEqual, "untouched")
			})
		})
	})

	Convey("Given a handler wrapped with metrics", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, "doc")

		Convey("Then the status passes through", func() {
			So(do(h, http.MethodPost, "/doc", "").Code, ShouldEqual, http.StatusBadGateway)
		})
	})
}
