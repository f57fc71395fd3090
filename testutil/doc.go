/*
Package testutil 提供 SearchFlow 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel
  - 数据工具: MustJSON / CollectStreamContent

# 子包

  - testutil/mocks: ScriptedProvider（按脚本回放的 llm.Provider，
    支持流式分块、凭据要求与错误注入）与 MockTool（tools.Tool）
  - testutil/fixtures: ReAct 文本与各搜索后端的响应样例

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewScriptedProvider(
		fixtures.ReActAction("look it up", "wikipedia", "golang"),
		fixtures.ReActFinal("I now know the final answer", "Go is a language."),
	)
*/
package testutil
