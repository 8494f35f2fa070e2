/*
 *    Copyright 2023 iFood
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package out

import (
	"context"
	"fmt"
	"malscan-intake/domain/entities"
	"malscan-intake/domain/services/format"
	"strings"

	"github.com/slack-go/slack"
)

const slackUsername = "malscan-intake"

var indicatorColors = map[entities.Indicator]string{
	entities.Positive: "good",
	entities.Caution:  "warning",
	entities.Alert:    "danger",
}

// SlackNotifier posts non-clean verdicts to a Slack incoming webhook.
type SlackNotifier struct {
	webhook   string
	channelID string
	formatter *format.ResultFormatter
}

func NewSlackNotifier(webhook, channelID string, formatter *format.ResultFormatter) *SlackNotifier {
	return &SlackNotifier{webhook: webhook, channelID: channelID, formatter: formatter}
}

func (s *SlackNotifier) Notify(ctx context.Context, file entities.CandidateFile, result entities.AnalysisResult) error {
	view := s.formatter.FormatResult(result)

	fields := []slack.AttachmentField{
		{Title: "File", Value: file.Name, Short: true},
		{Title: "Size", Value: view.Size, Short: true},
		{Title: "Hash", Value: view.Hash},
		{Title: "Analyzed", Value: view.Analyzed, Short: true},
	}

	if len(view.Categories) > 0 {
		fields = append(fields, slack.AttachmentField{Title: "Yara matches", Value: strings.Join(view.Categories, ", ")})
	}

	if view.Recommendations != "" {
		fields = append(fields, slack.AttachmentField{Title: "Recommendations", Value: view.Recommendations})
	}

	msg := slack.WebhookMessage{
		Username: slackUsername,
		Channel:  s.channelID,
		Text:     fmt.Sprintf("%s verdict for %s", view.Status, file.Name),
		Attachments: []slack.Attachment{{
			Color:  indicatorColors[view.Indicator],
			Fields: fields,
		}},
	}

	if err := slack.PostWebhookContext(ctx, s.webhook, &msg); err != nil {
		return fmt.Errorf("failed to send verdict to slack. %w", err)
	}

	return nil
}
