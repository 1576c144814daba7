package integration

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/tidwall/gjson"
)

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	authToken    string
	vars         map[string]string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:   tc,
		vars: make(map[string]string),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, s.tc.Reset()
	})

	// Background steps
	sc.Step(`^the Halyard server is running$`, s.theServerIsRunning)

	// Identity steps
	sc.Step(`^I am signed in as "([^"]*)"$`, s.iAmSignedInAs)
	sc.Step(`^I am not signed in$`, s.iAmNotSignedIn)
	sc.Step(`^"([^"]*)" has signed in before$`, s.hasSignedInBefore)

	// Request steps
	sc.Step(`^I send a (GET|DELETE) request to "([^"]*)"$`, s.iSendARequestTo)
	sc.Step(`^I send a (POST|PATCH) request to "([^"]*)" with JSON:$`, s.iSendARequestWithJSON)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, s.theJSONFieldShouldBe)
	sc.Step(`^the JSON field "([^"]*)" should be (-?\d+)$`, s.theJSONFieldShouldBeNumber)
	sc.Step(`^the JSON field "([^"]*)" should exist$`, s.theJSONFieldShouldExist)
	sc.Step(`^the JSON array "([^"]*)" should have (\d+) items?$`, s.theJSONArrayShouldHaveItems)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, s.theResponseHeaderShouldBe)
	sc.Step(`^I remember the JSON field "([^"]*)" as "([^"]*)"$`, s.iRememberTheJSONField)

	// Job steps
	sc.Step(`^the job "([^"]*)" should reach status "([^"]*)" within (\d+) seconds$`, s.theJobShouldReachStatus)
}

// Background steps

func (s *StepsContext) theServerIsRunning() error {
	return waitForServer(s.tc.ServerURL, 5*time.Second)
}

func (s *StepsContext) iAmNotSignedIn() error {
	s.authToken = ""
	return nil
}

// Request steps

func (s *StepsContext) expand(text string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := s.vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

func (s *StepsContext) send(method, path string, body io.Reader) error {
	req, err := http.NewRequest(method, s.tc.ServerURL+s.expand(path), body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}

	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

func (s *StepsContext) iSendARequestTo(method, path string) error {
	return s.send(method, path, nil)
}

func (s *StepsContext) iSendARequestWithJSON(method, path string, doc *godog.DocString) error {
	return s.send(method, path, bytes.NewBufferString(s.expand(doc.Content)))
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response == nil {
		return fmt.Errorf("no request has been sent")
	}
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) field(path string) (gjson.Result, error) {
	if !gjson.ValidBytes(s.responseBody) {
		return gjson.Result{}, fmt.Errorf("response is not JSON: %s", string(s.responseBody))
	}
	res := gjson.GetBytes(s.responseBody, s.expand(path))
	if !res.Exists() {
		return res, fmt.Errorf("field %q not found in %s", path, string(s.responseBody))
	}
	return res, nil
}

func (s *StepsContext) theJSONFieldShouldBe(path, expected string) error {
	res, err := s.field(path)
	if err != nil {
		return err
	}
	if res.String() != s.expand(expected) {
		return fmt.Errorf("expected %s to be %q, got %q", path, expected, res.String())
	}
	return nil
}

func (s *StepsContext) theJSONFieldShouldBeNumber(path string, expected int) error {
	res, err := s.field(path)
	if err != nil {
		return err
	}
	if res.Type != gjson.Number || res.Int() != int64(expected) {
		return fmt.Errorf("expected %s to be %d, got %s", path, expected, res.Raw)
	}
	return nil
}

func (s *StepsContext) theJSONFieldShouldExist(path string) error {
	_, err := s.field(path)
	return err
}

func (s *StepsContext) theJSONArrayShouldHaveItems(path string, count int) error {
	res, err := s.field(path)
	if err != nil {
		return err
	}
	if !res.IsArray() {
		return fmt.Errorf("%s is not an array: %s", path, res.Raw)
	}
	if n := len(res.Array()); n != count {
		return fmt.Errorf("expected %d items in %s, got %d", count, path, n)
	}
	return nil
}

func (s *StepsContext) theResponseHeaderShouldBe(name, expected string) error {
	actual := s.response.Header.Get(name)
	if actual != s.expand(expected) {
		return fmt.Errorf("expected header %s to be %q, got %q", name, expected, actual)
	}
	return nil
}

func (s *StepsContext) iRememberTheJSONField(path, name string) error {
	res, err := s.field(path)
	if err != nil {
		return err
	}
	s.vars[name] = res.String()
	return nil
}

// Job steps

func (s *StepsContext) theJobShouldReachStatus(name, status string, seconds int) error {
	id, ok := s.vars[name]
	if !ok {
		return fmt.Errorf("no remembered value %q", name)
	}

	deadline := time.Now().Add(time.Duration(seconds) * time.Second)
	last := ""
	for time.Now().Before(deadline) {
		if err := s.send(http.MethodGet, "/api/jobs/"+id, nil); err != nil {
			return err
		}
		last = gjson.GetBytes(s.responseBody, "status").String()
		if last == status {
			return nil
		}
		if last == "failed" && status != "failed" {
			return fmt.Errorf("job failed: %s", gjson.GetBytes(s.responseBody, "error").String())
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("job %s still %s after %s seconds", id, last, strconv.Itoa(seconds))
}

// splitName returns the display name for an email address
func splitName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	return strings.ToUpper(local[:1]) + local[1:]
}
