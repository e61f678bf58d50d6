package di

import (
	"sync"
	"testing"
)

// 测试用接口和实现，模拟示例程序里注册的服务
type IIssueDirectory interface {
	AssigneeFor(issueID string) string
}

type staticDirectory struct {
	assignee string
}

func (d *staticDirectory) AssigneeFor(issueID string) string {
	return d.assignee
}

type issueSettings struct {
	defaultAssignee string
}

// TestNew 测试容器创建
func TestNew(t *testing.T) {
	container := New()
	if container == nil {
		t.Fatal("容器创建失败")
	}
	if container.services == nil {
		t.Fatal("容器的services map未初始化")
	}
}

// TestRegisterAndResolve 测试按具体类型注册与解析
func TestRegisterAndResolve(t *testing.T) {
	container := New()

	original := &issueSettings{defaultAssignee: "alice"}
	if err := container.Register(original); err != nil {
		t.Fatalf("注册服务失败: %v", err)
	}
	if !container.Has((*issueSettings)(nil)) {
		t.Error("服务未正确注册")
	}

	resolved, err := container.Resolve((*issueSettings)(nil))
	if err != nil {
		t.Fatalf("解析服务失败: %v", err)
	}
	settings, ok := resolved.(*issueSettings)
	if !ok {
		t.Fatal("解析的服务类型不正确")
	}
	if settings != original {
		t.Error("解析的服务不是同一个实例")
	}
}

// TestRegister_Nil 测试注册nil服务
func TestRegister_Nil(t *testing.T) {
	container := New()

	if err := container.Register(nil); err == nil {
		t.Error("注册nil服务应该返回错误")
	}
	if err := container.RegisterAs((*IIssueDirectory)(nil), nil); err == nil {
		t.Error("以接口注册nil服务应该返回错误")
	}
}

// TestRegisterAs 测试以接口类型注册服务
func TestRegisterAs(t *testing.T) {
	container := New()

	if err := container.RegisterAs((*IIssueDirectory)(nil), &staticDirectory{assignee: "bob"}); err != nil {
		t.Fatalf("注册服务失败: %v", err)
	}

	resolved, err := container.Resolve((*IIssueDirectory)(nil))
	if err != nil {
		t.Fatalf("解析服务失败: %v", err)
	}
	directory, ok := resolved.(IIssueDirectory)
	if !ok {
		t.Fatal("解析的服务类型不正确")
	}
	if got := directory.AssigneeFor("issue-1"); got != "bob" {
		t.Errorf("AssigneeFor = %s, 期望 bob", got)
	}
}

// TestResolve_NotFound 测试解析不存在的服务
func TestResolve_NotFound(t *testing.T) {
	container := New()

	if _, err := container.Resolve((*issueSettings)(nil)); err == nil {
		t.Error("解析不存在的服务应该返回错误")
	}
}

// TestMustResolve 测试MustResolve
func TestMustResolve(t *testing.T) {
	container := New()
	container.Register(&issueSettings{defaultAssignee: "alice"})

	resolved := container.MustResolve((*issueSettings)(nil))
	if resolved.(*issueSettings).defaultAssignee != "alice" {
		t.Error("MustResolve返回的服务不正确")
	}
}

// TestMustResolve_Panic 测试MustResolve在服务不存在时panic
func TestMustResolve_Panic(t *testing.T) {
	container := New()

	defer func() {
		if r := recover(); r == nil {
			t.Error("MustResolve在服务不存在时应该panic")
		}
	}()

	container.MustResolve((*issueSettings)(nil))
}

// TestServiceOverride 测试同类型重复注册覆盖
func TestServiceOverride(t *testing.T) {
	container := New()

	container.Register(&issueSettings{defaultAssignee: "alice"})
	container.Register(&issueSettings{defaultAssignee: "bob"})

	resolved, err := container.Resolve((*issueSettings)(nil))
	if err != nil {
		t.Fatalf("解析服务失败: %v", err)
	}
	if got := resolved.(*issueSettings).defaultAssignee; got != "bob" {
		t.Errorf("期望服务被覆盖为'bob'，但得到'%s'", got)
	}
}

// TestMultipleServices 测试多类型共存
func TestMultipleServices(t *testing.T) {
	container := New()

	container.Register(&issueSettings{defaultAssignee: "alice"})
	container.RegisterAs((*IIssueDirectory)(nil), &staticDirectory{assignee: "bob"})

	settings, err := container.Resolve((*issueSettings)(nil))
	if err != nil {
		t.Fatalf("解析settings失败: %v", err)
	}
	if settings.(*issueSettings).defaultAssignee != "alice" {
		t.Error("settings解析错误")
	}

	directory, err := container.Resolve((*IIssueDirectory)(nil))
	if err != nil {
		t.Fatalf("解析directory失败: %v", err)
	}
	if directory.(IIssueDirectory).AssigneeFor("issue-1") != "bob" {
		t.Error("directory解析错误")
	}
}

// TestConcurrent 测试并发注册和解析
func TestConcurrent(t *testing.T) {
	container := New()

	const goroutines = 10
	const operations = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				if err := container.Register(&issueSettings{defaultAssignee: "alice"}); err != nil {
					t.Errorf("并发注册失败: %v", err)
				}
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				container.Resolve((*issueSettings)(nil))
				container.Has((*issueSettings)(nil))
			}
		}()
	}
	wg.Wait()
}

// TestGlobalContainer 测试全局容器
func TestGlobalContainer(t *testing.T) {
	// 全局容器在整个测试进程中共享
	if err := RegisterGlobal(&issueSettings{defaultAssignee: "global"}); err != nil {
		t.Fatalf("注册到全局容器失败: %v", err)
	}

	resolved, err := ResolveGlobal((*issueSettings)(nil))
	if err != nil {
		t.Fatalf("从全局容器解析失败: %v", err)
	}
	if resolved.(*issueSettings).defaultAssignee != "global" {
		t.Error("全局容器解析的服务不正确")
	}

	if err := RegisterAsGlobal((*IIssueDirectory)(nil), &staticDirectory{assignee: "global"}); err != nil {
		t.Fatalf("注册到全局容器失败: %v", err)
	}
	if MustResolveGlobal((*IIssueDirectory)(nil)).(IIssueDirectory).AssigneeFor("issue-1") != "global" {
		t.Error("MustResolveGlobal返回的服务不正确")
	}
}

// BenchmarkResolve 基准测试：解析服务
func BenchmarkResolve(b *testing.B) {
	container := New()
	container.Register(&issueSettings{defaultAssignee: "bench"})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		container.Resolve((*issueSettings)(nil))
	}
}
