package analyzer

import (
	"fmt"
	"strings"

	"github.com/gunksd/Perps-news/internal/types"
)

const newsSystemPrompt = `你是一个专业的金融新闻分析师。你的任务是：
1. 精炼总结新闻内容（中英文各3-5行）
2. 翻译新闻标题为英文
3. 分析新闻对金融市场的影响（中英文双语）

【严格禁止】
- 不得预测任何具体价格或点位
- 不得给出买卖建议
- 不得使用"必涨/必跌"等确定性表述

【只允许】
- 判断市场方向倾向（利多/利空/中性）
- 分析市场预期变化
- 说明情绪和因果逻辑

请以JSON格式输出：
{
  "title_en": "English translation of the news title",
  "summary_cn": "中文总结",
  "summary_en": "English summary",
  "market_impact": {
    "direction": "利多/利空/中性",
    "direction_en": "Bullish/Bearish/Neutral",
    "affected_markets": ["中证指数", "纳斯达克指数"],
    "affected_markets_en": ["CSI Index", "NASDAQ"],
    "logic": "影响逻辑说明",
    "logic_en": "Impact logic explanation in English"
  },
  "related_stocks": [
    {
      "symbol": "股票代码（如 AAPL, 600519.SH, 00700.HK）",
      "name": "公司名称",
      "market": "US/CN/HK"
    }
  ],
  "confidence": 0.8
}

【股票识别规则】
- 只标注新闻中明确提到的上市公司
- 提供准确的股票代码（A股加.SH/.SZ，港股加.HK，美股直接代码）
- 如果新闻没有提到具体公司，related_stocks返回空数组[]
- 最多标注5个最相关的股票

免责声明：本分析仅用于信息参考，不构成投资建议。`

const summarySystemPrompt = `你是一个专业的金融市场分析师。你的任务是：
汇总分析当天所有重要财经新闻对特定指数的综合影响。

【输出要求】
- 短期影响（1-3天）：偏多/偏空/震荡
- 中期影响（1-2周）：偏多/偏空/不确定
- 核心逻辑说明（不超过5行）

【严格禁止】
- 任何数值或点位预测
- 买卖建议
- 确定性表述

请以JSON格式输出：
{
  "short_term": {
    "direction": "偏多/偏空/震荡",
    "logic": "短期影响逻辑"
  },
  "medium_term": {
    "direction": "偏多/偏空/不确定",
    "logic": "中期影响逻辑"
  },
  "confidence": 0.75
}`

func buildNewsPrompt(news types.RawNews) string {
	return fmt.Sprintf(`请分析以下财经新闻：

【新闻来源】%s
【发布时间】%s
【新闻标题】%s
【新闻内容】%s

请按照系统提示的格式输出分析结果。`, news.Source, news.Time.Format("2006-01-02 15:04:05"), news.Title, news.Content)
}

func buildSummaryPrompt(news []types.RawNews, relevant []types.NewsAnalysis, index string) string {
	titles := make(map[string]string, len(news))
	for _, n := range news {
		titles[n.ID] = n.Title
	}

	blocks := make([]string, 0, len(relevant))
	for i, a := range relevant {
		blocks = append(blocks, fmt.Sprintf(`【新闻%d】
标题：%s
分析：%s
影响：%s
逻辑：%s`, i+1, titles[a.NewsID], a.SummaryCN, a.MarketImpact.Direction, a.MarketImpact.Logic))
	}

	return fmt.Sprintf(`请汇总分析以下新闻对【%s】的综合影响：

%s

请按照系统提示的格式输出汇总结果。`, index, strings.Join(blocks, "\n\n"))
}
