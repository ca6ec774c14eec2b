package narration

import (
	"fmt"

	"github.com/mohammad-safakhou/narrator/internal/crew"
	"github.com/mohammad-safakhou/narrator/internal/sources"
	"github.com/mohammad-safakhou/narrator/models"
	"github.com/mohammad-safakhou/narrator/provider"
)

const (
	TaskHistory   = "history"
	TaskSummary   = "summary"
	TaskNarration = "narration"
)

var (
	historianPersona = crew.Persona{
		Role:      "News Historian",
		Goal:      "explain the events and background that led up to a news story",
		Backstory: "a patient archivist who has followed regional and world affairs for decades and can place any headline in its longer story",
	}
	summarizerPersona = crew.Persona{
		Role:      "News Summarizer",
		Goal:      "condense a news article into its essential facts without losing accuracy",
		Backstory: "a wire-service editor trained to cut copy to the bone while keeping every name, number and place correct",
	}
)

func narratorPersona(style string) crew.Persona {
	return crew.Persona{
		Role:      "Storyteller",
		Goal:      "retell the news in the voice of " + style,
		Backstory: "a storyteller who turns the day's news into tales listeners remember, never inventing facts the sources do not support",
	}
}

// buildPipeline wires the fixed history, summary and narration tasks for one article.
// The narration task depends on both earlier tasks and receives their outputs as context.
func buildPipeline(gen provider.Generator, article models.ArticleContent, style string, contentChars int) []*crew.Task {
	body := sources.TruncateRunes(article.Content, contentChars)
	source := fmt.Sprintf("Title: %s\nURL: %s\n\nArticle:\n%s", article.Title, article.URL, body)

	history := &crew.Task{
		Name:           TaskHistory,
		Description:    "Describe the historical background of the following news article.\n\n" + source,
		ExpectedOutput: "Two or three short paragraphs of background, plain prose, no headings.",
		Agent:          crew.NewAgent(historianPersona, gen),
	}
	summary := &crew.Task{
		Name:           TaskSummary,
		Description:    "Summarize the key facts of the following news article.\n\n" + source,
		ExpectedOutput: "A concise summary of five sentences or fewer.",
		Agent:          crew.NewAgent(summarizerPersona, gen),
	}
	narration := &crew.Task{
		Name: TaskNarration,
		Description: fmt.Sprintf("Using the background and summary provided, retell the article %q as a narrative in the voice of %s.",
			article.Title, style),
		ExpectedOutput: "A self-contained narrative of a few paragraphs, ready to be read aloud.",
		Agent:          crew.NewAgent(narratorPersona(style), gen),
		Prerequisites:  []*crew.Task{history, summary},
	}
	return []*crew.Task{history, summary, narration}
}
