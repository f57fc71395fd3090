package retry

import "context"

// DoWithResultTyped 在 r 的重试策略下执行 fn，返回类型化结果。
// 适配器用它包装搜索调用的限流重试：
//
//	out, err := retry.DoWithResultTyped[string](r, ctx, func() (string, error) {
//	    return backend.Search(ctx, query)
//	})
func DoWithResultTyped[T any](r Retryer, ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	result, err := r.DoWithResult(ctx, func() (any, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	// fn 返回 nil 接口值时断言失败，按零值处理.
	v, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return v, nil
}
