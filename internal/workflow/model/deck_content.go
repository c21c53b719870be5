package model

// DeckContentInput 演示文稿内容生成的输入
type DeckContentInput struct {
	Idea        string
	Customer    string
	Region      string
	Constraints string

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}
