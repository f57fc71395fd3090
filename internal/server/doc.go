// 版权所有 2024 SearchFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动与优雅关闭。

# 核心类型

  - Manager：封装 net/http.Server，持有监听器与异步错误通道，
    提供 Start/Run/Shutdown 等生命周期方法。
  - Config：监听地址、读写超时、空闲超时、最大请求头与优雅关闭超时。

# 主要能力

  - Run 阻塞直到 ctx 结束，适合放入 errgroup 与 API、metrics
    两个服务并行运行。
  - Shutdown 在超时内排空进行中的请求（含 SSE 与 WebSocket 对话）。
  - Addr 在启动后返回实际监听地址，便于 ":0" 随机端口测试。
*/
package server
