package pipelines

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jimezsa/pipecli/internal/api"
	"github.com/jimezsa/pipecli/internal/pipeline"
	"github.com/rs/zerolog"
)

type getCall struct {
	Resource string
	Filters  api.Filters
}

type fakeStore struct {
	tables  map[string]*api.Table
	getErrs map[string]error
	postErr error

	gets  []getCall
	posts map[string]any
}

func (s *fakeStore) Get(_ context.Context, resource string, filters api.Filters) (*api.Table, error) {
	s.gets = append(s.gets, getCall{Resource: resource, Filters: filters})
	if err := s.getErrs[resource]; err != nil {
		return nil, err
	}
	if table, ok := s.tables[resource]; ok {
		return table, nil
	}
	return api.NewTable(api.IDField, nil), nil
}

func (s *fakeStore) Post(_ context.Context, resource string, records any) (int, error) {
	if s.posts == nil {
		s.posts = map[string]any{}
	}
	s.posts[resource] = records
	if s.postErr != nil {
		return http.StatusBadRequest, s.postErr
	}
	return http.StatusCreated, nil
}

var errUnavailable = errors.New("unavailable")

func testNow() time.Time {
	return time.Date(2021, 4, 10, 15, 30, 0, 0, time.UTC)
}

func runOptions() pipeline.Options {
	return pipeline.Options{Logger: zerolog.Nop()}
}
