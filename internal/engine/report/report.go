// Copyright 2025 Conveyor Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"encoding/xml"
	"fmt"

	"github.com/conveyorci/conveyor/internal/engine/model"
	"github.com/conveyorci/conveyor/pkg/statemachine"
)

// Summary aggregates a run's results for machine consumption.
type Summary struct {
	RunId      string                 `json:"runId"`
	Template   string                 `json:"template"`
	Status     statemachine.RunStatus `json:"status"`
	Total      int                    `json:"total"`
	Passed     int                    `json:"passed"`
	Failed     int                    `json:"failed"`
	Skipped    int                    `json:"skipped"`
	DurationMS int64                  `json:"durationMs"`
	Stages     []model.StepResult     `json:"stages"`
}

// TestSuite is a JUnit-style testsuite element: one testcase per
// StepResult, so a consumer can diagnose a failed run from the report
// alone without re-running anything.
type TestSuite struct {
	XMLName   xml.Name   `xml:"testsuite"`
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Skipped   int        `xml:"skipped,attr"`
	Time      float64    `xml:"time,attr"`
	TestCases []TestCase `xml:"testcase"`
}

type TestCase struct {
	Name      string       `xml:"name,attr"`
	ClassName string       `xml:"classname,attr"`
	Time      float64      `xml:"time,attr"`
	Failure   *FailureNode `xml:"failure,omitempty"`
	Skipped   *SkippedNode `xml:"skipped,omitempty"`
}

type FailureNode struct {
	Message string `xml:"message,attr"`
	Content string `xml:",chardata"`
}

type SkippedNode struct {
	Message string `xml:"message,attr,omitempty"`
}

// BuildSummary builds the JSON summary for a run.
func BuildSummary(run *model.PipelineRun) Summary {
	s := Summary{
		RunId:      run.RunId,
		Template:   run.TemplateName,
		Status:     run.Status,
		Total:      len(run.StageResults),
		DurationMS: run.Duration,
		Stages:     run.StageResults,
	}
	for _, sr := range run.StageResults {
		switch sr.Outcome {
		case model.OutcomePassed:
			s.Passed++
		case model.OutcomeFailed:
			s.Failed++
		case model.OutcomeSkipped:
			s.Skipped++
		}
	}
	return s
}

// BuildJUnit builds the JUnit-style suite for a run.
func BuildJUnit(run *model.PipelineRun) TestSuite {
	suite := TestSuite{
		Name:  fmt.Sprintf("%s/%s", run.TemplateName, run.RunId),
		Tests: len(run.StageResults),
		Time:  float64(run.Duration) / 1000.0,
	}

	for _, sr := range run.StageResults {
		tc := TestCase{
			Name:      sr.StageName,
			ClassName: run.TemplateName,
			Time:      float64(sr.Duration) / 1000.0,
		}
		switch sr.Outcome {
		case model.OutcomeFailed:
			suite.Failures++
			tc.Failure = &FailureNode{
				Message: fmt.Sprintf("stage exited with code %d", sr.ExitCode),
				Content: sr.ErrorOutput,
			}
		case model.OutcomeSkipped:
			suite.Skipped++
			tc.Skipped = &SkippedNode{Message: "stage skipped"}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}
	return suite
}

// MarshalJUnit renders the suite as an XML document.
func MarshalJUnit(suite TestSuite) ([]byte, error) {
	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal junit report: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}
