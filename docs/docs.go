// Package docs registra la especificación OpenAPI servida en /swagger, con la
// misma forma que produce swag init. Mantener alineado con las anotaciones de handler.go.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/doses": {
            "post": {
                "description": "Registra una toma del medicamento indicado con la hora del servidor. No es idempotente.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["doses"],
                "summary": "Registrar una toma",
                "parameters": [
                    {
                        "description": "Nombre del medicamento (debe estar en el catálogo)",
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/doses.recordRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/doses.doseResponse"}},
                    "400": {"description": "invalid json / unknown medicine", "schema": {"type": "string"}},
                    "409": {"description": "rescue medicine still cooling down", "schema": {"type": "string"}},
                    "503": {"description": "store unavailable", "schema": {"type": "string"}}
                }
            }
        },
        "/api/doses/today/{name}": {
            "delete": {
                "description": "Borra la toma más reciente de hoy para el medicamento indicado. Si no hay ninguna, no hace nada y responde deleted=false.",
                "produces": ["application/json"],
                "tags": ["doses"],
                "summary": "Borrar la última toma de hoy",
                "parameters": [
                    {"type": "string", "description": "Nombre del medicamento", "name": "name", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/doses.deleteResponse"}},
                    "503": {"description": "store unavailable", "schema": {"type": "string"}}
                }
            }
        },
        "/api/history": {
            "get": {
                "description": "Devuelve las tomas agrupadas por día para los últimos 7 días (hoy primero). Los días sin tomas aparecen con lista vacía.",
                "produces": ["application/json"],
                "tags": ["doses"],
                "summary": "Historial de 7 días",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/doses.historyResponse"}}
                }
            }
        },
        "/api/status": {
            "get": {
                "description": "Devuelve qué medicamentos rutinarios se tomaron hoy, si están todos y si el medicamento de rescate está disponible. Si el store no responde, evalúa con historial vacío y lo indica en ` + "`" + `degraded` + "`" + `.",
                "produces": ["application/json"],
                "tags": ["doses"],
                "summary": "Estado del día",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/doses.statusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "doses.dayResponse": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2024/01/01"},
                "doses": {"type": "array", "items": {"$ref": "#/definitions/doses.doseResponse"}}
            }
        },
        "doses.deleteResponse": {
            "type": "object",
            "properties": {
                "deleted": {"type": "boolean"}
            }
        },
        "doses.doseResponse": {
            "type": "object",
            "properties": {
                "date": {"type": "string", "example": "2024/01/01"},
                "medicine": {"type": "string"},
                "taken_at": {"type": "string"},
                "time": {"type": "string", "example": "08:00:00"}
            }
        },
        "doses.historyResponse": {
            "type": "object",
            "properties": {
                "days": {"type": "array", "items": {"$ref": "#/definitions/doses.dayResponse"}},
                "degraded": {"type": "string"}
            }
        },
        "doses.medicineEntry": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["routine", "rescue"]},
                "name": {"type": "string"}
            }
        },
        "doses.recordRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "朝の薬(1)"}
            }
        },
        "doses.rescueResponse": {
            "type": "object",
            "properties": {
                "available": {"type": "boolean"},
                "medicine": {"type": "string"},
                "next_available": {"type": "string"},
                "remaining_hours": {"type": "integer"},
                "remaining_minutes": {"type": "integer"}
            }
        },
        "doses.statusResponse": {
            "type": "object",
            "properties": {
                "all_routine_done": {"type": "boolean"},
                "date": {"type": "string", "example": "2024/01/01"},
                "degraded": {"type": "string"},
                "diagnostics": {"type": "array", "items": {"type": "string"}},
                "medicines": {"type": "array", "items": {"$ref": "#/definitions/doses.medicineEntry"}},
                "recent": {"type": "array", "items": {"$ref": "#/definitions/doses.doseResponse"}},
                "rescue": {"$ref": "#/definitions/doses.rescueResponse"},
                "taken_today": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "med-adherence-tracker API",
	Description:      "Registro de tomas diarias y control del intervalo del medicamento de rescate.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
