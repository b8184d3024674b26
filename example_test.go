package stratum_test

import (
	"context"
	"fmt"
	"log"

	"github.com/junioryono/stratum"
)

type Logger struct {
	prefix string
}

func (l *Logger) Printf(format string, args ...any) string {
	return l.prefix + fmt.Sprintf(format, args...)
}

type User struct {
	ID   int
	Name string
}

type UserStore interface {
	User(id int) User
}

type memoryUserStore struct {
	users map[int]User
}

func (s *memoryUserStore) User(id int) User { return s.users[id] }

type UserService struct {
	logger *Logger
	store  UserStore
}

func NewLogger(stratum.Context) (*Logger, error) {
	return &Logger{prefix: "[app] "}, nil
}

func NewMemoryUserStore(stratum.Context) (*memoryUserStore, error) {
	return &memoryUserStore{users: map[int]User{1: {ID: 1, Name: "John Doe"}}}, nil
}

func NewUserService(c stratum.Context) (*UserService, error) {
	logger, err := stratum.Resolve[*Logger](c)
	if err != nil {
		return nil, err
	}

	store, err := stratum.Resolve[UserStore](c)
	if err != nil {
		return nil, err
	}

	return &UserService{logger: logger, store: store}, nil
}

// Example demonstrates basic service registration and resolution.
func Example() {
	b := stratum.NewBuilder()

	stratum.AddSingleton(b, NewLogger)
	stratum.AddSingleton(b, NewMemoryUserStore)
	stratum.As[*memoryUserStore, UserStore](b)
	stratum.AddTransient(b, NewUserService)

	provider, err := b.Build()
	if err != nil {
		log.Fatal(err)
	}
	defer provider.Close()

	users, err := stratum.Resolve[*UserService](provider.Context(context.Background()))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(users.logger.Printf("user %s", users.store.User(1).Name))
	// Output: [app] user John Doe
}

// ExampleAddSingleton demonstrates that singletons are built once.
func ExampleAddSingleton() {
	b := stratum.NewBuilder()
	stratum.AddSingleton(b, NewLogger)

	provider, _ := b.Build()
	defer provider.Close()

	c := provider.Context(context.Background())
	logger1, _ := stratum.Resolve[*Logger](c)
	logger2, _ := stratum.Resolve[*Logger](c)

	fmt.Println(logger1 == logger2)
	// Output: true
}

// ExampleProvider_EnterTaskScope demonstrates task-scoped services.
func ExampleProvider_EnterTaskScope() {
	type RequestState struct {
		Calls int
	}

	b := stratum.NewBuilder()
	stratum.AddTaskScoped(b, func(stratum.Context) (*RequestState, error) {
		return &RequestState{}, nil
	})

	provider, _ := b.Build()
	defer provider.Close()

	for range 2 {
		ctx, exit := provider.EnterTaskScope(context.Background())

		for range 3 {
			state, _ := stratum.Resolve[*RequestState](provider.Context(ctx))
			state.Calls++
		}

		state, _ := stratum.Resolve[*RequestState](provider.Context(ctx))
		fmt.Println(state.Calls)
		exit()
	}

	_, err := stratum.Resolve[*RequestState](provider.Context(context.Background()))
	fmt.Println(stratum.IsScopeContextMissing(err))
	// Output:
	// 3
	// 3
	// true
}

// ExampleResolveAll demonstrates several implementations of one interface.
func ExampleResolveAll() {
	b := stratum.NewBuilder()
	stratum.AddSingleton(b, func(stratum.Context) (frenchGreeter, error) { return frenchGreeter{}, nil })
	stratum.AddSingleton(b, func(stratum.Context) (*germanGreeter, error) { return &germanGreeter{}, nil })
	stratum.As[frenchGreeter, Greeter](b)
	stratum.As[*germanGreeter, Greeter](b)

	provider, _ := b.Build()
	defer provider.Close()

	greeters, _ := stratum.ResolveAll[Greeter](provider.Context(context.Background()))
	for _, g := range greeters {
		fmt.Println(g.Greet())
	}
	// Output:
	// bonjour
	// hallo
}

// ExampleMap demonstrates converting a service into another type.
func ExampleMap() {
	type Config struct{ Host string }
	type BaseURL string

	b := stratum.NewBuilder()
	stratum.AddSingleton(b, func(stratum.Context) (*Config, error) {
		return &Config{Host: "example.com"}, nil
	})
	stratum.Map(b, func(_ stratum.Context, cfg *Config) (BaseURL, error) {
		return BaseURL("https://" + cfg.Host), nil
	})

	provider, _ := b.Build()
	defer provider.Close()

	url, _ := stratum.Resolve[BaseURL](provider.Context(context.Background()))
	fmt.Println(url)
	// Output: https://example.com
}
