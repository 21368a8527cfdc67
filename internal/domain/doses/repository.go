package doses

import "context"

// Store es el log append-only de tomas.
//
// List devuelve los eventos ordenados por TakenAt ascendente; los empates se
// resuelven por orden de inserción. Append y DeleteLatest deben ser atómicos
// en el backend; secuencias "leer y decidir" no son transaccionales.
type Store interface {
	Append(ctx context.Context, e DoseEvent) error
	List(ctx context.Context) ([]DoseEvent, error)

	// DeleteLatest borra el evento más reciente de name dentro de w.
	// Devuelve false (sin error) si no había ninguno.
	DeleteLatest(ctx context.Context, name string, w Window) (bool, error)
}
