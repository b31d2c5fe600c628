// AngelaMos | 2026
// types.go

package panel

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type Server struct {
	ID         int64
	Identifier string
	Name       string
	Suspended  bool
	IP         string
	Port       int
}

type CreateServerParams struct {
	Name       string
	UserID     int64
	NestID     int
	EggID      int
	MemoryMB   int
	CPU        int
	DiskMB     int
	LocationID int
}

type object[T any] struct {
	Object     string `json:"object"`
	Attributes T      `json:"attributes"`
}

type list[T any] struct {
	Object string      `json:"object"`
	Data   []object[T] `json:"data"`
}

type createUserBody struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type eggAttributes struct {
	DockerImage   string `json:"docker_image"`
	Startup       string `json:"startup"`
	Relationships struct {
		Variables list[eggVariable] `json:"variables"`
	} `json:"relationships"`
}

type eggVariable struct {
	EnvVariable  string `json:"env_variable"`
	DefaultValue string `json:"default_value"`
}

type serverAttributes struct {
	ID            int64  `json:"id"`
	Identifier    string `json:"identifier"`
	Name          string `json:"name"`
	Suspended     bool   `json:"suspended"`
	Allocation    int64  `json:"allocation"`
	Relationships struct {
		Allocations list[allocationAttributes] `json:"allocations"`
	} `json:"relationships"`
}

type allocationAttributes struct {
	ID    int64   `json:"id"`
	IP    string  `json:"ip"`
	Alias *string `json:"alias"`
	Port  int     `json:"port"`
}

type createServerBody struct {
	Name          string            `json:"name"`
	User          int64             `json:"user"`
	Egg           int               `json:"egg"`
	DockerImage   string            `json:"docker_image"`
	Startup       string            `json:"startup"`
	Environment   map[string]string `json:"environment"`
	Limits        limits            `json:"limits"`
	FeatureLimits featureLimits     `json:"feature_limits"`
	Deploy        deploy            `json:"deploy"`
}

type limits struct {
	Memory int `json:"memory"`
	Swap   int `json:"swap"`
	Disk   int `json:"disk"`
	IO     int `json:"io"`
	CPU    int `json:"cpu"`
}

type featureLimits struct {
	Databases   int `json:"databases"`
	Backups     int `json:"backups"`
	Allocations int `json:"allocations"`
}

type deploy struct {
	Locations   []int    `json:"locations"`
	DedicatedIP bool     `json:"dedicated_ip"`
	PortRange   []string `json:"port_range"`
}

func (a serverAttributes) toServer() *Server {
	s := &Server{
		ID:         a.ID,
		Identifier: a.Identifier,
		Name:       a.Name,
		Suspended:  a.Suspended,
	}

	allocs := a.Relationships.Allocations.Data
	for _, alloc := range allocs {
		if alloc.Attributes.ID == a.Allocation || len(allocs) == 1 {
			s.IP = alloc.Attributes.IP
			if alloc.Attributes.Alias != nil && *alloc.Attributes.Alias != "" {
				s.IP = *alloc.Attributes.Alias
			}
			s.Port = alloc.Attributes.Port
			break
		}
	}

	return s
}
