// 版权所有 2024 SearchFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的大语言模型接入层：Provider 抽象、请求/响应模型、
流式增量与会话级凭据覆盖。

# Provider 抽象

核心接口是 [Provider]，包含补全、流式输出、健康检查与凭据能力声明。
agent 包只依赖该接口，具体后端（Groq 等 OpenAI 兼容服务）位于
llm/providers 子包。

# 核心类型

  - [ChatRequest] / [ChatResponse] / [StreamChunk]：统一的请求、响应与增量块
  - [Error]：带错误码与可重试标记的传输层错误
  - [CredentialOverride]：通过 context 传递的会话级 API Key

# 辅助函数

  - [FirstChoice]：安全取出第一个候选
  - [CollectStream]：把增量流汇聚为完整响应，并回调每个内容增量
  - [ResolveAPIKey]：按 ctx 覆盖 → 配置 的顺序解析 API Key
*/
package llm
