// 版权所有 2024 SearchFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP、LLM、搜索工具、Agent 运行与会话五个维度。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 指标。它同时实现 agent.MetricsRecorder 与
    tools.Observer，可直接注入 AgentLoop 与各搜索适配器。

# 主要能力

  - HTTP 指标：请求总数、耗时、响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - LLM 指标：请求总数、耗时、Token 用量（prompt/completion）。
  - 工具指标：调用结果、耗时、限流重试次数、兜底替换次数。
  - Agent 指标：按结果统计的运行次数、耗时、迭代次数、解析失败、状态转换。
*/
package metrics
