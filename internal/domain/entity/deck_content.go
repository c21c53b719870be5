// Package entity 定义领域实体
package entity

// 模板决定的列表条目数
const (
	ProblemCount       = 4
	InsightCount       = 3
	SolutionCount      = 4
	FlowCount          = 4
	WhyNowCount        = 4
	BusinessModelCount = 3
	GTMCount           = 4
	CompetitionCount   = 3
	RiskCount          = 3
)

// DeckRequest 用户的原始输入
type DeckRequest struct {
	Idea        string `json:"idea"`
	Customer    string `json:"customer,omitempty"`
	Region      string `json:"region,omitempty"`
	Constraints string `json:"constraints,omitempty"`
}

// ContentModel 一份演示文稿的结构化内容
// 所有列表长度固定，缺失条目以默认值补齐
type ContentModel struct {
	CompanyName     string     `json:"company_name"`
	Tagline         string     `json:"tagline"`
	Subtitle        string     `json:"subtitle"`
	Problems        []string   `json:"problems"`
	Insights        []string   `json:"insights"`
	Solutions       []string   `json:"solutions"`
	FlowSteps       []string   `json:"flow_steps"`
	WhyNow          []string   `json:"why_now"`
	BusinessModel   []string   `json:"business_model"`
	GoToMarket      []string   `json:"go_to_market"`
	Competition     []string   `json:"competition"`
	Risks           []string   `json:"risks"`
	VisionStatement string     `json:"vision_statement"`
	Market          MarketSize `json:"market"`
}

// ListField 描述一个定长列表字段
type ListField struct {
	// Prefix 占位符前缀，如 PROBLEM 对应 PROBLEM_1..PROBLEM_4
	Prefix string
	// Section 模型输出中可能出现的整段数组键，如 PROBLEMS
	Section string
	Count   int
	Get     func(*ContentModel) []string
	Set     func(*ContentModel, []string)
}

// ListFields 按模板顺序列出全部定长列表字段
var ListFields = []ListField{
	{Prefix: "PROBLEM", Section: "PROBLEMS", Count: ProblemCount,
		Get: func(c *ContentModel) []string { return c.Problems },
		Set: func(c *ContentModel, v []string) { c.Problems = v }},
	{Prefix: "INSIGHT", Section: "INSIGHTS", Count: InsightCount,
		Get: func(c *ContentModel) []string { return c.Insights },
		Set: func(c *ContentModel, v []string) { c.Insights = v }},
	{Prefix: "SOLUTION", Section: "SOLUTIONS", Count: SolutionCount,
		Get: func(c *ContentModel) []string { return c.Solutions },
		Set: func(c *ContentModel, v []string) { c.Solutions = v }},
	{Prefix: "FLOW", Section: "FLOW", Count: FlowCount,
		Get: func(c *ContentModel) []string { return c.FlowSteps },
		Set: func(c *ContentModel, v []string) { c.FlowSteps = v }},
	{Prefix: "WHY_NOW", Section: "WHY_NOW", Count: WhyNowCount,
		Get: func(c *ContentModel) []string { return c.WhyNow },
		Set: func(c *ContentModel, v []string) { c.WhyNow = v }},
	{Prefix: "BUSINESS_MODEL", Section: "BUSINESS_MODEL", Count: BusinessModelCount,
		Get: func(c *ContentModel) []string { return c.BusinessModel },
		Set: func(c *ContentModel, v []string) { c.BusinessModel = v }},
	{Prefix: "GTM", Section: "GTM", Count: GTMCount,
		Get: func(c *ContentModel) []string { return c.GoToMarket },
		Set: func(c *ContentModel, v []string) { c.GoToMarket = v }},
	{Prefix: "COMPETITION", Section: "COMPETITION", Count: CompetitionCount,
		Get: func(c *ContentModel) []string { return c.Competition },
		Set: func(c *ContentModel, v []string) { c.Competition = v }},
	{Prefix: "RISK", Section: "RISKS", Count: RiskCount,
		Get: func(c *ContentModel) []string { return c.Risks },
		Set: func(c *ContentModel, v []string) { c.Risks = v }},
}

// ScalarField 描述一个标量文本字段
type ScalarField struct {
	Token string
	Get   func(*ContentModel) string
	Set   func(*ContentModel, string)
}

// 标量占位符
const (
	TokenCompanyName     = "COMPANY_NAME"
	TokenTagline         = "TAGLINE"
	TokenSubtitle        = "SUBTITLE"
	TokenVisionStatement = "VISION_STATEMENT"
	TokenTAM             = "TAM_VALUE"
	TokenSAM             = "SAM_VALUE"
	TokenSOM             = "SOM_VALUE"
)

// ScalarFields 标量文本字段（市场规模另行处理）
var ScalarFields = []ScalarField{
	{Token: TokenCompanyName,
		Get: func(c *ContentModel) string { return c.CompanyName },
		Set: func(c *ContentModel, v string) { c.CompanyName = v }},
	{Token: TokenTagline,
		Get: func(c *ContentModel) string { return c.Tagline },
		Set: func(c *ContentModel, v string) { c.Tagline = v }},
	{Token: TokenSubtitle,
		Get: func(c *ContentModel) string { return c.Subtitle },
		Set: func(c *ContentModel, v string) { c.Subtitle = v }},
	{Token: TokenVisionStatement,
		Get: func(c *ContentModel) string { return c.VisionStatement },
		Set: func(c *ContentModel, v string) { c.VisionStatement = v }},
}
